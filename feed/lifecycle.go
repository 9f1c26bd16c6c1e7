package feed

import (
	"context"

	"github.com/briefmux/briefmux/model"
	Logger "github.com/briefmux/briefmux/utils/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AddResult is the outcome of subscribing to a feed URL. Warning is set
// when the source row was created but its initial fetch failed; the
// subscription still exists, just without metadata or articles yet.
type AddResult struct {
	Source  *model.FeedSource `json:"source"`
	Created int               `json:"articlesCreated"`
	Skipped int               `json:"articlesSkipped"`
	Warning string            `json:"warning,omitempty"`
}

// AddSource validates that url yields a parseable feed, creates the
// subscription row, and attempts an initial refresh. Validation failure
// returns ErrInvalidSource and creates nothing; initial-refresh failure is
// a soft warning and never rolls back the created row.
func (s *Service) AddSource(ctx context.Context, ownerID string, url string) (*AddResult, error) {
	if _, err := s.Fetcher.FetchAndParse(ctx, url); err != nil {
		Logger.Log.Infof("rejected feed url %s: %s", url, err)
		return nil, ErrInvalidSource
	}

	source := &model.FeedSource{
		Id:     uuid.New().String(),
		UserId: ownerID,
		Url:    url,
	}
	if err := s.DB.Create(source).Error; err != nil {
		return nil, errors.Wrap(err, "failed to create feed source")
	}

	bulk, err := s.RefreshSource(ctx, source.Id)
	if err != nil {
		Logger.Log.Errorf("initial refresh failed for source %s: %s", source.Id, err)
		return &AddResult{Source: source, Warning: "feed created but initial fetch failed"}, nil
	}

	// Reload to pick up the metadata the refresh wrote.
	if err := s.DB.First(source, "id = ?", source.Id).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to reload source %s", source.Id)
	}
	return &AddResult{Source: source, Created: bulk.Created, Skipped: bulk.Skipped}, nil
}

// RemoveSource unsubscribes a source. Source-set cleanup and orphan-article
// deletion happen in the same transaction as the row deletion, so no
// article is ever left referencing a missing source and no article is
// deleted while another source still references it.
func (s *Service) RemoveSource(sourceID string) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_id = ?", sourceID).Delete(&model.ArticleSource{}).Error; err != nil {
			return err
		}
		// Drop articles whose source-set just became empty.
		if err := tx.Exec(
			"DELETE FROM articles WHERE NOT EXISTS (SELECT 1 FROM article_sources WHERE article_sources.article_id = articles.id)",
		).Error; err != nil {
			return err
		}
		return tx.Delete(&model.FeedSource{}, "id = ?", sourceID).Error
	})
	return errors.Wrapf(err, "failed to remove feed source %s", sourceID)
}
