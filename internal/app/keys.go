package app

// Cache key namespace. Every key this system writes or invalidates is
// defined here so invalidation logic and read paths cannot drift apart.
const (
	// StatsKey caches the aggregate snapshot.
	StatsKey = "testimonials:stats"
	// PublishedKey caches the public list of approved + featured items.
	PublishedKey = "testimonials:published"
	// FeaturedKey caches the featured set.
	FeaturedKey = "testimonials:featured"
)

// EntityKey returns the cache key for a single testimonial.
func EntityKey(id string) string {
	return "testimonials:testimonial:" + id
}

// CategoryListKey returns the cache key for a category-scoped list.
func CategoryListKey(categoryID string) string {
	return "testimonials:category:" + categoryID + ":testimonials"
}

// CategoryPattern matches every cached artifact scoped to a category
// (lists, per-category stats), for pattern-based invalidation.
func CategoryPattern(categoryID string) string {
	return "testimonials:category:" + categoryID + ":*"
}
