package feed

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/briefmux/briefmux/model"
	"github.com/briefmux/briefmux/rss"
	"github.com/briefmux/briefmux/utils/dotenv"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

// fakeFetcher serves canned feeds keyed by URL and counts calls, standing in
// for the network client.
type fakeFetcher struct {
	mu        sync.Mutex
	feeds     map[string]*rss.Feed
	errs      map[string]error
	calls     map[string]int
	failAfter map[string]int
	lateErrs  map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		feeds:     map[string]*rss.Feed{},
		errs:      map[string]error{},
		calls:     map[string]int{},
		failAfter: map[string]int{},
		lateErrs:  map[string]error{},
	}
}

func (f *fakeFetcher) FetchAndParse(ctx context.Context, url string) (*rss.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if n, ok := f.failAfter[url]; ok && f.calls[url] > n {
		return nil, f.lateErrs[url]
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if feed, ok := f.feeds[url]; ok {
		return feed, nil
	}
	return nil, errors.Errorf("no canned feed for %s", url)
}

// afterCalls makes url start failing with err once it has served n calls.
func (f *fakeFetcher) afterCalls(url string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter[url] = n
	f.lateErrs[url] = err
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) serve(url string, items ...rss.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds[url] = &rss.Feed{
		Metadata: rss.Metadata{Title: "Canned Feed", Link: url},
		Items:    items,
	}
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	delete(f.feeds, url)
}

func testItem(guid string, pubDate time.Time) rss.Item {
	return rss.Item{
		Guid:    guid,
		Title:   "title of " + guid,
		Link:    "https://example.com/" + guid,
		Content: "content of " + guid,
		Summary: "summary of " + guid,
		PubDate: pubDate,
	}
}

// createSource inserts a subscription row directly, bypassing validation.
func createSource(t *testing.T, db *gorm.DB, userID, url string, lastFetched *time.Time) *model.FeedSource {
	t.Helper()
	source := &model.FeedSource{
		Id:          uuid.New().String(),
		UserId:      userID,
		Url:         url,
		LastFetched: lastFetched,
	}
	require.NoError(t, db.Create(source).Error)
	return source
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func sourceSet(t *testing.T, db *gorm.DB, articleID string) []string {
	t.Helper()
	var ids []string
	require.NoError(t, db.Model(&model.ArticleSource{}).
		Where("article_id = ?", articleID).
		Pluck("source_id", &ids).Error)
	return ids
}
