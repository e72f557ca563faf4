package domain

import "time"

// StatsPolicy makes the aggregation rules explicit instead of implied.
// CountsByStatus always includes archived rows; ExcludeArchived only
// controls whether they weigh into the average rating.
type StatsPolicy struct {
	ExcludeArchived bool
}

// Aggregate is the raw result of a store-side aggregation.
type Aggregate struct {
	Total          int64
	AverageRating  float64
	CountsByStatus map[Status]int64
}

// StatsSnapshot is the cached, caller-facing view of the aggregates.
type StatsSnapshot struct {
	Total          int64            `json:"total"`
	AverageRating  float64          `json:"average_rating"`
	CountsByStatus map[Status]int64 `json:"counts_by_status"`
	ComputedAt     time.Time        `json:"computed_at"`
}
