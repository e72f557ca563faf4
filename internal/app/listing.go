package app

import (
	"context"
	"time"

	"github.com/kudoware/kudos/internal/domain"
)

// ListingService serves the public read paths read-through from the
// cache. These lists are what list-key invalidation protects: a
// transition across the public boundary must be visible on the next
// read, not after a TTL expiry.
type ListingService struct {
	store domain.TestimonialStore
	cache domain.Cache
	ttl   time.Duration
}

// NewListingService creates a cached listing service.
func NewListingService(store domain.TestimonialStore, cache domain.Cache, ttl time.Duration) *ListingService {
	return &ListingService{store: store, cache: cache, ttl: ttl}
}

// Get returns a single testimonial, cached under its entity key.
func (l *ListingService) Get(ctx context.Context, id string) (domain.Testimonial, error) {
	if v, ok := l.cache.Get(ctx, EntityKey(id)); ok {
		if t, ok := v.(domain.Testimonial); ok {
			return t, nil
		}
	}

	t, err := l.store.GetByID(ctx, id)
	if err != nil {
		return domain.Testimonial{}, err
	}
	l.cache.Set(ctx, EntityKey(id), t, l.ttl)
	return t, nil
}

// Published returns approved and featured testimonials.
func (l *ListingService) Published(ctx context.Context) ([]domain.Testimonial, error) {
	return l.cachedList(ctx, PublishedKey, func(ctx context.Context) ([]domain.Testimonial, error) {
		approved := domain.StatusApproved
		out, err := l.store.List(ctx, domain.ListFilter{Status: &approved})
		if err != nil {
			return nil, err
		}
		featured := domain.StatusFeatured
		more, err := l.store.List(ctx, domain.ListFilter{Status: &featured})
		if err != nil {
			return nil, err
		}
		return append(out, more...), nil
	})
}

// Featured returns the featured set.
func (l *ListingService) Featured(ctx context.Context) ([]domain.Testimonial, error) {
	return l.cachedList(ctx, FeaturedKey, func(ctx context.Context) ([]domain.Testimonial, error) {
		featured := domain.StatusFeatured
		return l.store.List(ctx, domain.ListFilter{Status: &featured})
	})
}

// ByCategory returns the public testimonials for one category.
func (l *ListingService) ByCategory(ctx context.Context, categoryID string) ([]domain.Testimonial, error) {
	return l.cachedList(ctx, CategoryListKey(categoryID), func(ctx context.Context) ([]domain.Testimonial, error) {
		all, err := l.store.List(ctx, domain.ListFilter{CategoryID: categoryID})
		if err != nil {
			return nil, err
		}
		out := make([]domain.Testimonial, 0, len(all))
		for _, t := range all {
			if t.Status.IsPublic() {
				out = append(out, t)
			}
		}
		return out, nil
	})
}

func (l *ListingService) cachedList(ctx context.Context, key string, load func(context.Context) ([]domain.Testimonial, error)) ([]domain.Testimonial, error) {
	if v, ok := l.cache.Get(ctx, key); ok {
		if list, ok := v.([]domain.Testimonial); ok {
			return list, nil
		}
	}

	list, err := load(ctx)
	if err != nil {
		return nil, err
	}
	l.cache.Set(ctx, key, list, l.ttl)
	return list, nil
}
