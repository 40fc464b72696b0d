package registry

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/pattern"
)

const (
	DefaultCacheTTL        = 30 * time.Minute
	DefaultCleanupInterval = time.Hour
)

// setCache is a read-through cache of compiled pattern sets keyed by mode.
// Sets are immutable, so a hit can be shared by every document of the mode.
type setCache struct {
	cache *gocache.Cache
	ttl   time.Duration
	load  func(ctx context.Context, mode string) (*pattern.Set, error)
}

func newSetCache(ttl time.Duration, load func(ctx context.Context, mode string) (*pattern.Set, error)) *setCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &setCache{
		cache: gocache.New(ttl, DefaultCleanupInterval),
		ttl:   ttl,
		load:  load,
	}
}

// Get returns the cached set for mode, compiling it on a miss. A hit
// extends the entry's lifetime.
func (c *setCache) Get(ctx context.Context, mode string) (*pattern.Set, error) {
	if v, found := c.cache.Get(mode); found {
		if set, ok := v.(*pattern.Set); ok {
			log.Debug(log.CatCache, "cache hit", "mode", mode)
			c.cache.Set(mode, set, c.ttl)
			return set, nil
		}
		log.Error(log.CatCache, "wrong type assertion when getting value", "mode", mode)
	}

	set, err := c.load(ctx, mode)
	if err != nil {
		return nil, err
	}
	c.cache.Set(mode, set, c.ttl)
	return set, nil
}

// Put stores an already compiled set.
func (c *setCache) Put(mode string, set *pattern.Set) {
	c.cache.Set(mode, set, c.ttl)
}

// Delete drops modes from the cache.
func (c *setCache) Delete(modes ...string) {
	for _, m := range modes {
		c.cache.Delete(m)
	}
}

// Flush drops every entry.
func (c *setCache) Flush() { c.cache.Flush() }

// Len returns the number of cached sets, including expired ones not yet
// cleaned up.
func (c *setCache) Len() int { return c.cache.ItemCount() }
