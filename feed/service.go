package feed

import (
	"context"

	"github.com/briefmux/briefmux/rss"
	"gorm.io/gorm"
)

// Fetcher retrieves and normalizes a remote feed. *rss.Client is the
// production implementation; tests inject fakes.
type Fetcher interface {
	FetchAndParse(ctx context.Context, url string) (*rss.Feed, error)
}

// Service owns feed subscriptions, the shared article store and the
// staleness policy that decides when a subscription's URL must be refetched.
//
// Authorization is the caller's job: handlers decide whether an owner may
// touch a given source id before calling in here.
type Service struct {
	DB      *gorm.DB
	Fetcher Fetcher

	// Cache is the optional by-URL freshness fast path. Nil disables it;
	// the lastFetched aggregation over feed_sources stays authoritative.
	Cache *FreshnessCache
}

func NewService(db *gorm.DB, fetcher Fetcher, cache *FreshnessCache) *Service {
	return &Service{
		DB:      db,
		Fetcher: fetcher,
		Cache:   cache,
	}
}
