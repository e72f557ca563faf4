package ttlcache

import (
	"context"
	"path"
	"time"

	tcache "github.com/jellydator/ttlcache/v3"

	"github.com/kudoware/kudos/internal/domain"
)

// Compile-time check: Cache implements domain.Cache.
var _ domain.Cache = (*Cache)(nil)

// Cache implements the domain cache port with an in-process
// jellydator/ttlcache store. Hits do not refresh TTLs, so a stale
// entry can never outlive its invalidation cycle by being read.
type Cache struct {
	inner      *tcache.Cache[string, any]
	defaultTTL time.Duration
}

// New creates a started cache whose entries default to defaultTTL.
// Call Stop on shutdown to end the expiration loop.
func New(defaultTTL time.Duration) *Cache {
	inner := tcache.New(
		tcache.WithTTL[string, any](defaultTTL),
		tcache.WithDisableTouchOnHit[string, any](),
	)
	go inner.Start()

	return &Cache{inner: inner, defaultTTL: defaultTTL}
}

// Get returns the live value for key, if any.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	item := c.inner.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores value under key. ttl <= 0 selects the default TTL.
func (c *Cache) Set(_ context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.inner.Set(key, value, ttl)
}

// Delete removes key.
func (c *Cache) Delete(_ context.Context, key string) {
	c.inner.Delete(key)
}

// DeleteMatching removes every key matching the glob pattern and
// reports how many were dropped. Keys use ':' separators, which glob
// treats as ordinary characters.
func (c *Cache) DeleteMatching(_ context.Context, pattern string) int {
	dropped := 0
	for _, key := range c.inner.Keys() {
		ok, err := path.Match(pattern, key)
		if err != nil {
			// Malformed pattern matches nothing.
			return dropped
		}
		if ok {
			c.inner.Delete(key)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.inner.Len()
}

// Stop ends the background expiration loop.
func (c *Cache) Stop() {
	c.inner.Stop()
}
