package app

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kudoware/kudos/internal/domain"
)

// StatsAggregator serves aggregate counters read-through from the
// cache. On a miss it recomputes from the store exactly once, however
// many readers arrive at the same time: concurrent misses wait on the
// in-flight computation instead of each hitting the store.
type StatsAggregator struct {
	store  domain.TestimonialStore
	cache  domain.Cache
	policy domain.StatsPolicy
	ttl    time.Duration

	group singleflight.Group
	now   func() time.Time
}

// NewStatsAggregator creates an aggregator with the given store,
// cache, aggregation policy, and cache TTL.
func NewStatsAggregator(store domain.TestimonialStore, cache domain.Cache, policy domain.StatsPolicy, ttl time.Duration) *StatsAggregator {
	return &StatsAggregator{
		store:  store,
		cache:  cache,
		policy: policy,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Stats returns the aggregate snapshot, recomputing lazily on miss.
func (a *StatsAggregator) Stats(ctx context.Context) (domain.StatsSnapshot, error) {
	if v, ok := a.cache.Get(ctx, StatsKey); ok {
		if snap, ok := v.(domain.StatsSnapshot); ok {
			return snap, nil
		}
	}

	v, err, _ := a.group.Do(StatsKey, func() (any, error) {
		// A loser of the race may have filled the cache while this
		// caller waited for the group slot.
		if v, ok := a.cache.Get(ctx, StatsKey); ok {
			if snap, ok := v.(domain.StatsSnapshot); ok {
				return snap, nil
			}
		}

		agg, err := a.store.Aggregate(ctx, a.policy)
		if err != nil {
			return nil, err
		}

		snap := domain.StatsSnapshot{
			Total:          agg.Total,
			AverageRating:  agg.AverageRating,
			CountsByStatus: agg.CountsByStatus,
			ComputedAt:     a.now(),
		}
		a.cache.Set(ctx, StatsKey, snap, a.ttl)
		return snap, nil
	})
	if err != nil {
		return domain.StatsSnapshot{}, err
	}

	return v.(domain.StatsSnapshot), nil
}
