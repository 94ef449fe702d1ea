package store

import (
	"sort"
	"time"

	"github.com/rcliao/project-memory/internal/model"
)

// RetentionPolicy bounds how many entries a project keeps and for how long.
type RetentionPolicy struct {
	MaxMemories int
	TTL         time.Duration
	// BatchMargin is how far below MaxMemories eviction goes once triggered,
	// so cleanup does not run on every store. A margin at or above
	// MaxMemories is cut to 1% of MaxMemories.
	BatchMargin int
	// Entries at or above ExemptImportance never expire by age.
	ExemptImportance float64
}

// DefaultRetention keeps 10000 entries for 90 days.
func DefaultRetention() RetentionPolicy {
	return RetentionPolicy{
		MaxMemories:      10000,
		TTL:              90 * 24 * time.Hour,
		BatchMargin:      100,
		ExemptImportance: 0.8,
	}
}

// margin is BatchMargin, or 1% of MaxMemories when BatchMargin would empty
// the store. A limit of 10 with the default margin evicts down to exactly 10.
func (p RetentionPolicy) margin() int {
	m := p.BatchMargin
	if m >= p.MaxMemories {
		m = p.MaxMemories / 100
	}
	if m < 0 {
		return 0
	}
	return m
}

// evictCount returns how many entries to remove given the live count.
func (p RetentionPolicy) evictCount(count int) int {
	if p.MaxMemories <= 0 || count <= p.MaxMemories {
		return 0
	}
	return count - (p.MaxMemories - p.margin())
}

// cutoff is the creation time before which non-exempt entries expire.
// The zero time disables expiry.
func (p RetentionPolicy) cutoff(now time.Time) time.Time {
	if p.TTL <= 0 {
		return time.Time{}
	}
	return now.Add(-p.TTL)
}

func (p RetentionPolicy) exempt(importance float64) bool {
	return importance >= p.ExemptImportance
}

func (p RetentionPolicy) expired(e model.Entry, now time.Time) bool {
	c := p.cutoff(now)
	return !c.IsZero() && e.CreatedAt.Before(c) && !p.exempt(e.Importance)
}

// evictionOrder sorts entries so the first ones are evicted first: lowest
// importance, then fewest accesses, then oldest.
func evictionOrder(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Importance != b.Importance {
			return a.Importance < b.Importance
		}
		if a.AccessCount != b.AccessCount {
			return a.AccessCount < b.AccessCount
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
