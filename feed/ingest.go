package feed

import (
	"github.com/briefmux/briefmux/model"
	"github.com/briefmux/briefmux/rss"
	Logger "github.com/briefmux/briefmux/utils/log"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BulkResult tallies the outcome of recording a batch of items.
type BulkResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// identityKey derives the deduplication key for an item: upstream guid,
// falling back to link, falling back to a source-scoped composite when the
// feed supplies neither.
func identityKey(sourceID string, item rss.Item) string {
	if item.Guid != "" {
		return item.Guid
	}
	if item.Link != "" {
		return item.Link
	}
	return sourceID + ":" + item.Title
}

// RecordArticle stores one parsed item as a deduplicated article, returning
// the durable record and whether a new row was created.
//
// First sighting of an identity key creates the article with a single-entry
// source-set. Later sightings only append sourceID to the source-set;
// descriptive fields are never overwritten (first-seen content wins). Both
// the article insert and the source-set append use ON CONFLICT DO NOTHING,
// so concurrent sightings of the same key from parallel refreshes cannot
// lose an append or duplicate an entry.
func (s *Service) RecordArticle(sourceID string, item rss.Item) (*model.Article, bool, error) {
	key := identityKey(sourceID, item)
	article := model.Article{
		Id:         uuid.New().String(),
		Guid:       key,
		FeedId:     sourceID,
		Title:      item.Title,
		Link:       item.Link,
		Content:    item.Content,
		Summary:    item.Summary,
		PubDate:    item.PubDate,
		Author:     item.Author,
		Categories: pq.StringArray(item.Categories),
		ImageUrl:   item.ImageUrl,
	}

	created := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guid"}},
			DoNothing: true,
		}).Create(&article)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1

		if !created {
			// The identity key already exists, return that record unchanged.
			var existing model.Article
			if err := tx.Where("guid = ?", key).First(&existing).Error; err != nil {
				return err
			}
			article = existing
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.ArticleSource{
			ArticleId: article.Id,
			SourceId:  sourceID,
		}).Error
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to record article %s", key)
	}
	return &article, created, nil
}

// RecordArticles runs the single-item path per item and tallies outcomes.
// One item's failure never aborts the batch: duplicate-identity collisions
// count as Skipped, anything else counts as Errors and the loop continues.
func (s *Service) RecordArticles(sourceID string, items []rss.Item) BulkResult {
	var result BulkResult
	for _, item := range items {
		_, created, err := s.RecordArticle(sourceID, item)
		switch {
		case err == nil && created:
			result.Created++
		case err == nil:
			result.Skipped++
		case isDuplicateKey(err):
			result.Skipped++
		default:
			result.Errors++
			Logger.Log.Errorf("failed to record article %s for source %s: %s", identityKey(sourceID, item), sourceID, err)
		}
	}
	return result
}
