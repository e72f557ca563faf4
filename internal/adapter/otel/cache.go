package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kudoware/kudos/internal/domain"
)

const meterName = "github.com/kudoware/kudos/internal/adapter/otel"

// MeteredCache wraps a domain.Cache with hit/miss/invalidation
// counters. Cache calls are in-process and cheap, so they get metrics
// rather than a span per lookup.
type MeteredCache struct {
	next domain.Cache

	lookups       metric.Int64Counter
	invalidations metric.Int64Counter
}

// Compile-time check: MeteredCache implements domain.Cache.
var _ domain.Cache = (*MeteredCache)(nil)

// NewMeteredCache creates a metering decorator around the given cache.
func NewMeteredCache(next domain.Cache) (*MeteredCache, error) {
	meter := otel.Meter(meterName)

	lookups, err := meter.Int64Counter("kudos.cache.lookups",
		metric.WithDescription("Cache lookups by outcome"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter("kudos.cache.invalidations",
		metric.WithDescription("Cache keys deleted by invalidation"),
	)
	if err != nil {
		return nil, err
	}

	return &MeteredCache{
		next:          next,
		lookups:       lookups,
		invalidations: invalidations,
	}, nil
}

func (c *MeteredCache) Get(ctx context.Context, key string) (any, bool) {
	v, ok := c.next.Get(ctx, key)
	outcome := "miss"
	if ok {
		outcome = "hit"
	}
	c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return v, ok
}

func (c *MeteredCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	c.next.Set(ctx, key, value, ttl)
}

func (c *MeteredCache) Delete(ctx context.Context, key string) {
	c.next.Delete(ctx, key)
	c.invalidations.Add(ctx, 1)
}

func (c *MeteredCache) DeleteMatching(ctx context.Context, pattern string) int {
	dropped := c.next.DeleteMatching(ctx, pattern)
	c.invalidations.Add(ctx, int64(dropped))
	return dropped
}
