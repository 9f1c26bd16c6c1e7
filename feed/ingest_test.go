package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/briefmux/briefmux/model"
	"github.com/briefmux/briefmux/rss"
	"github.com/briefmux/briefmux/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKeyFallbacks(t *testing.T) {
	item := rss.Item{Guid: "guid-1", Link: "https://example.com/a", Title: "A"}
	assert.Equal(t, "guid-1", identityKey("s1", item))

	item.Guid = ""
	assert.Equal(t, "https://example.com/a", identityKey("s1", item))

	item.Link = ""
	assert.Equal(t, "s1:A", identityKey("s1", item))
}

func TestRecordArticleIdempotent(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	service := NewService(db, newFakeFetcher(), nil)
	source := createSource(t, db, "user-1", "https://example.com/feed.xml", nil)

	item := testItem("guid-1", time.Now())
	first, created, err := service.RecordArticle(source.Id, item)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := service.RecordArticle(source.Id, item)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Id, second.Id)

	var count int64
	require.NoError(t, db.Model(&model.Article{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Len(t, sourceSet(t, db, first.Id), 1)
}

func TestRecordArticleSetUnion(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	service := NewService(db, newFakeFetcher(), nil)
	a := createSource(t, db, "user-1", "https://a.example.com/feed.xml", nil)
	b := createSource(t, db, "user-2", "https://b.example.com/feed.xml", nil)

	item := testItem("shared-guid", time.Now())
	article, created, err := service.RecordArticle(a.Id, item)
	require.NoError(t, err)
	assert.True(t, created)

	merged, created, err := service.RecordArticle(b.Id, item)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, article.Id, merged.Id)

	set := sourceSet(t, db, article.Id)
	assert.ElementsMatch(t, []string{a.Id, b.Id}, set)
}

func TestRecordArticleFirstWriteWins(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	service := NewService(db, newFakeFetcher(), nil)
	a := createSource(t, db, "user-1", "https://a.example.com/feed.xml", nil)
	b := createSource(t, db, "user-2", "https://b.example.com/feed.xml", nil)

	item := testItem("shared-guid", time.Now())
	item.Content = "X"
	_, _, err := service.RecordArticle(a.Id, item)
	require.NoError(t, err)

	item.Content = "Y"
	_, _, err = service.RecordArticle(b.Id, item)
	require.NoError(t, err)

	var stored model.Article
	require.NoError(t, db.First(&stored, "guid = ?", "shared-guid").Error)
	assert.Equal(t, "X", stored.Content)
	assert.Equal(t, a.Id, stored.FeedId)
}

func TestRecordArticleConcurrentAppend(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	service := NewService(db, newFakeFetcher(), nil)

	sources := []*model.FeedSource{}
	for i := 0; i < 8; i++ {
		url := "https://example.com/feed-" + utils.RandomAlphabetString(6) + ".xml"
		sources = append(sources, createSource(t, db, "user-1", url, nil))
	}

	// Every source discovers the same article at once. All appends must
	// survive, no entry may be duplicated.
	item := testItem("race-guid", time.Now())
	var wg sync.WaitGroup
	for _, source := range sources {
		wg.Add(1)
		go func(sourceID string) {
			defer wg.Done()
			_, _, err := service.RecordArticle(sourceID, item)
			assert.NoError(t, err)
		}(source.Id)
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&model.Article{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var article model.Article
	require.NoError(t, db.First(&article, "guid = ?", "race-guid").Error)
	want := []string{}
	for _, source := range sources {
		want = append(want, source.Id)
	}
	assert.ElementsMatch(t, want, sourceSet(t, db, article.Id))
}

func TestRecordArticlesTallies(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	service := NewService(db, newFakeFetcher(), nil)
	source := createSource(t, db, "user-1", "https://example.com/feed.xml", nil)

	now := time.Now()
	items := []rss.Item{
		testItem("guid-1", now),
		testItem("guid-2", now),
		testItem("guid-1", now), // duplicate within the batch
	}
	result := service.RecordArticles(source.Id, items)
	assert.Equal(t, BulkResult{Created: 2, Skipped: 1, Errors: 0}, result)

	// Replaying the whole batch only skips.
	result = service.RecordArticles(source.Id, items)
	assert.Equal(t, BulkResult{Created: 0, Skipped: 3, Errors: 0}, result)
}
