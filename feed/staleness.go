package feed

import (
	"context"
	"time"

	"github.com/briefmux/briefmux/model"
	"github.com/briefmux/briefmux/utils"
	"github.com/pkg/errors"
)

// StalenessWindow is how long previously fetched feed data may be reused
// before its source counts as stale. Balances content freshness against
// load on external RSS origins.
const StalenessWindow = 3 * time.Hour

type sourceURL struct {
	Id  string
	Url string
}

// ClassifyStaleness resolves the requested sources to their URLs and
// returns the ids whose URL nobody has fetched within the staleness window.
//
// Freshness is shared across tenants: if ANY feed source row with the same
// URL was fetched recently, every subscription to that URL is fresh, no
// matter which user triggered the fetch. The check reads the lastFetched
// column without locking; two requests racing to the same conclusion just
// perform one redundant fetch, which the idempotent merge absorbs.
func (s *Service) ClassifyStaleness(ctx context.Context, sourceIDs []string) ([]string, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}

	var sources []sourceURL
	if err := s.DB.Model(&model.FeedSource{}).
		Select("id", "url").
		Where("id IN ?", sourceIDs).
		Find(&sources).Error; err != nil {
		return nil, errors.Wrap(err, "failed to resolve source urls")
	}

	urls := []string{}
	for _, src := range sources {
		if !utils.ContainsString(urls, src.Url) {
			urls = append(urls, src.Url)
		}
	}

	cutoff := time.Now().Add(-StalenessWindow)
	var recent []string
	if err := s.DB.Model(&model.FeedSource{}).
		Where("url IN ?", urls).
		Group("url").
		Having("MAX(last_fetched) >= ?", cutoff).
		Pluck("url", &recent).Error; err != nil {
		return nil, errors.Wrap(err, "failed to aggregate recent fetches")
	}

	// Cache fast path: a URL another instance refreshed within the window
	// counts as fresh even before its row update is visible here.
	if s.Cache != nil {
		for _, url := range urls {
			if !utils.ContainsString(recent, url) && s.Cache.IsFresh(ctx, url) {
				recent = append(recent, url)
			}
		}
	}

	stale := []string{}
	for _, src := range sources {
		if !utils.ContainsString(recent, src.Url) {
			stale = append(stale, src.Id)
		}
	}
	return stale, nil
}
