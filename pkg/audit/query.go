package audit

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultLimit is the number of records returned when Query.Limit is zero.
	DefaultLimit = 100

	// MaxLimit is the maximum number of records a single query may return.
	MaxLimit = 10000
)

// Validate validates a query and returns a *QueryError if any parameter is invalid.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortOrder != "" && q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}
	return nil
}

// EffectiveLimit returns Limit, or DefaultLimit when Limit is zero.
func (q *Query) EffectiveLimit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultLimit
}

// Ascending reports whether results are sorted oldest first.
func (q *Query) Ascending() bool {
	return strings.EqualFold(q.SortOrder, SortAsc)
}

// Matches reports whether r satisfies the query filters. Pagination and
// sorting are not considered.
func (q *Query) Matches(r *Record) bool {
	if q.StartTime != nil && r.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.Timestamp.After(*q.EndTime) {
		return false
	}
	if q.Source != "" && r.Source != q.Source {
		return false
	}
	if q.World != "" && r.World != q.World {
		return false
	}
	if q.Allowed != nil && r.Allowed != *q.Allowed {
		return false
	}
	if q.Command != "" && !strings.Contains(strings.ToLower(r.Command), strings.ToLower(q.Command)) {
		return false
	}
	if len(q.IDs) > 0 {
		found := false
		for _, id := range q.IDs {
			if id == r.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Blocked returns a query for blocked records only.
func Blocked() *Query {
	allowed := false
	return &Query{Allowed: &allowed}
}

// OlderThan returns a query for records at or before now minus age.
func OlderThan(age time.Duration, now time.Time) *Query {
	cutoff := now.Add(-age)
	return &Query{EndTime: &cutoff}
}
