package feed

import (
	"context"

	Logger "github.com/briefmux/briefmux/utils/log"
	"github.com/go-redis/redis/v8"
)

const (
	freshnessKeyPrefix = "feed_fresh__"

	// Redis only has string type, there is no boolean or int, so we use "1" to represent true
	redisTrue = "1"
)

// FreshnessCache is an optional shared view of recent fetch activity keyed
// by feed URL, with a TTL equal to the staleness window. It only
// short-circuits the lastFetched aggregation; a cold or unreachable cache
// degrades to the DB answer, never to an error.
type FreshnessCache struct {
	inner *redis.Client
}

func NewFreshnessCache(client *redis.Client) *FreshnessCache {
	return &FreshnessCache{inner: client}
}

func freshnessKey(url string) string {
	return freshnessKeyPrefix + url
}

// MarkFetched records a successful fetch of url. Failures are logged and
// swallowed, the DB row is the durable record.
func (c *FreshnessCache) MarkFetched(ctx context.Context, url string) {
	if err := c.inner.Set(ctx, freshnessKey(url), redisTrue, StalenessWindow).Err(); err != nil {
		Logger.Log.Errorf("failed to mark %s fetched in cache: %s", url, err)
	}
}

// IsFresh reports whether url was fetched within the staleness window
// according to the cache alone.
func (c *FreshnessCache) IsFresh(ctx context.Context, url string) bool {
	val, err := c.inner.Get(ctx, freshnessKey(url)).Result()
	return err == nil && val == redisTrue
}
