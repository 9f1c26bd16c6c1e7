package feed

import (
	"context"
	"sync"
	"time"

	"github.com/briefmux/briefmux/model"
	Logger "github.com/briefmux/briefmux/utils/log"
	"github.com/pkg/errors"
)

// ArticleLimit caps how many articles one generation request works from,
// keeping downstream prompts manageable.
const ArticleLimit = 100

// RefreshResult is the settled outcome of one source's refresh attempt.
type RefreshResult struct {
	SourceId string
	Bulk     BulkResult
	Err      error
}

// Prepared is the article working-set assembled for a generation request,
// along with the refresh outcomes observed while assembling it.
type Prepared struct {
	Articles  []*model.Article `json:"articles"`
	Refreshed int              `json:"refreshed"`
	Failed    []string         `json:"failed"`
}

// PrepareArticles brings the requested sources up to date and returns the
// stored articles whose source-set intersects sourceIDs and whose
// publication time falls inside [startDate, endDate].
//
// Stale sources are refreshed concurrently and independently; a failed
// refresh degrades that source's freshness for this request but never
// aborts the operation. Returns ErrNoContent when the final list is empty.
func (s *Service) PrepareArticles(ctx context.Context, sourceIDs []string, startDate, endDate time.Time) (*Prepared, error) {
	stale, err := s.ClassifyStaleness(ctx, sourceIDs)
	if err != nil {
		return nil, err
	}

	prepared := &Prepared{Failed: []string{}}
	if len(stale) > 0 {
		Logger.Log.Infof("refreshing %d stale sources (out of %d requested)", len(stale), len(sourceIDs))
		for _, result := range s.refreshAll(ctx, stale) {
			if result.Err != nil {
				prepared.Failed = append(prepared.Failed, result.SourceId)
				Logger.Log.Errorf("failed to refresh source %s: %s", result.SourceId, result.Err)
				continue
			}
			prepared.Refreshed++
		}
		Logger.Log.Infof("feed refresh complete: %d successful, %d failed", prepared.Refreshed, len(prepared.Failed))
	} else {
		Logger.Log.Infof("all %d requested sources are fresh, skipping refresh", len(sourceIDs))
	}

	articles, err := s.articlesInRange(sourceIDs, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNoContent
	}
	prepared.Articles = articles
	return prepared, nil
}

// refreshAll fans out one goroutine per source and waits for every attempt
// to settle. A failed source never cancels or delays its siblings.
func (s *Service) refreshAll(ctx context.Context, sourceIDs []string) []RefreshResult {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []RefreshResult
	)
	for _, id := range sourceIDs {
		wg.Add(1)
		go func(sourceID string) {
			defer wg.Done()
			bulk, err := s.RefreshSource(ctx, sourceID)
			mu.Lock()
			results = append(results, RefreshResult{SourceId: sourceID, Bulk: bulk, Err: err})
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return results
}

// RefreshSource fetches one source's feed and merges its items into the
// shared article store. Display metadata and lastFetched are only written
// after the fetch succeeds, so lastFetched never moves on a failed fetch.
func (s *Service) RefreshSource(ctx context.Context, sourceID string) (BulkResult, error) {
	var source model.FeedSource
	if err := s.DB.First(&source, "id = ?", sourceID).Error; err != nil {
		return BulkResult{}, errors.Wrapf(err, "failed to load source %s", sourceID)
	}

	parsed, err := s.Fetcher.FetchAndParse(ctx, source.Url)
	if err != nil {
		return BulkResult{}, err
	}

	bulk := s.RecordArticles(sourceID, parsed.Items)

	if err := s.DB.Model(&model.FeedSource{}).Where("id = ?", sourceID).Updates(map[string]interface{}{
		"title":        parsed.Metadata.Title,
		"description":  parsed.Metadata.Description,
		"link":         parsed.Metadata.Link,
		"image_url":    parsed.Metadata.ImageUrl,
		"language":     parsed.Metadata.Language,
		"last_fetched": time.Now(),
	}).Error; err != nil {
		return bulk, errors.Wrapf(err, "failed to update source %s after fetch", sourceID)
	}

	if s.Cache != nil {
		s.Cache.MarkFetched(ctx, source.Url)
	}
	return bulk, nil
}

// articlesInRange queries the shared store for articles referenced by any
// of the requested sources, newest first, with the source count attached
// for downstream importance ranking.
func (s *Service) articlesInRange(sourceIDs []string, startDate, endDate time.Time) ([]*model.Article, error) {
	var articles []*model.Article
	err := s.DB.Model(&model.Article{}).
		Select("articles.*").
		Preload("Sources").
		Joins("JOIN article_sources ON article_sources.article_id = articles.id").
		Where("article_sources.source_id IN ?", sourceIDs).
		Where("articles.pub_date BETWEEN ? AND ?", startDate, endDate).
		Group("articles.id").
		Order("articles.pub_date DESC").
		Limit(ArticleLimit).
		Find(&articles).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch articles by sources and date range")
	}
	for _, article := range articles {
		article.SourceCount = len(article.Sources)
	}
	return articles, nil
}
