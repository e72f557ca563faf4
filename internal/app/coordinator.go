package app

import (
	"context"
	"log/slog"

	"github.com/kudoware/kudos/internal/domain"
)

// Compile-time check: CacheCoordinator implements domain.TransitionSubscriber.
var _ domain.TransitionSubscriber = (*CacheCoordinator)(nil)

// CacheCoordinator translates transition events into cache deletions.
// It never recomputes anything inline: the stats key is deleted and
// left for the aggregator's next read, behind its single-flight lock.
type CacheCoordinator struct {
	cache  domain.Cache
	logger *slog.Logger
}

// NewCacheCoordinator creates a coordinator over the given cache.
func NewCacheCoordinator(cache domain.Cache, logger *slog.Logger) *CacheCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheCoordinator{cache: cache, logger: logger}
}

// KeysFor derives the keys and patterns a transition invalidates.
// Pure function of the event:
//
//   - the entity key and the stats key, always;
//   - the published and featured list keys when the transition crosses
//     the public-visibility boundary;
//   - the featured list key additionally when either endpoint is
//     featured, since approve<->feature moves items within the public
//     set but changes featured membership;
//   - the category pattern whenever list keys go, if the testimonial
//     belongs to a category.
//
// Response events touch nothing visibility-related, so only the entity
// and stats keys fall.
func KeysFor(event domain.TransitionEvent) (keys []string, patterns []string) {
	keys = append(keys, EntityKey(event.TestimonialID), StatsKey)

	if event.Kind != domain.EventKindStatus {
		return keys, nil
	}

	invalidateLists := event.CrossesPublicBoundary()
	if invalidateLists {
		keys = append(keys, PublishedKey, FeaturedKey)
	} else if event.From == domain.StatusFeatured || event.To == domain.StatusFeatured {
		keys = append(keys, FeaturedKey)
		invalidateLists = true
	}

	if invalidateLists && event.CategoryID != "" {
		patterns = append(patterns, CategoryPattern(event.CategoryID))
	}

	return keys, patterns
}

// OnTransition deletes every key the event invalidates.
func (c *CacheCoordinator) OnTransition(ctx context.Context, event domain.TransitionEvent) {
	keys, patterns := KeysFor(event)

	for _, key := range keys {
		c.cache.Delete(ctx, key)
	}
	dropped := 0
	for _, pattern := range patterns {
		dropped += c.cache.DeleteMatching(ctx, pattern)
	}

	c.logger.DebugContext(ctx, "cache invalidated",
		"testimonial_id", event.TestimonialID,
		"from", event.From,
		"to", event.To,
		"keys", len(keys),
		"pattern_hits", dropped,
	)
}
