package query

import (
	"maps"

	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// Pagination limits.
const (
	DefaultSize = 10
	MaxSize     = 10000
	// MaxWindow bounds from+size, the engine's result window.
	MaxWindow = 10000
)

// Request is a validated search request.
type Request struct {
	query Clause
	sort  []SortField
	aggs  map[string]Aggregation
	from  int
	size  int
}

// NewRequest validates and normalizes search parameters.
// A nil query means match_all. Size 0 means DefaultSize unless aggregations
// are requested, in which case it asks for aggregations only. Sizes above
// MaxSize are clamped. from+size must stay inside MaxWindow.
func NewRequest(q Clause, sort []SortField, aggs map[string]Aggregation, from, size int) (Request, error) {
	if q == nil {
		q = MatchAll{}
	}
	if err := q.Validate(); err != nil {
		return Request{}, err
	}
	sort = append([]SortField(nil), sort...)
	if err := checkSort(sort); err != nil {
		return Request{}, err
	}
	if len(aggs) > MaxAggregations {
		return Request{}, invalid("aggs: too many aggregations (max %d)", MaxAggregations)
	}
	for name, a := range aggs {
		if err := a.Validate(name); err != nil {
			return Request{}, err
		}
	}
	if from < 0 {
		return Request{}, invalid("from must be >= 0")
	}
	if size < 0 {
		return Request{}, invalid("size must be >= 0")
	}
	if size == 0 && len(aggs) == 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	if from+size > MaxWindow {
		return Request{}, invalid("from+size must not exceed %d", MaxWindow)
	}
	return Request{query: q, sort: sort, aggs: maps.Clone(aggs), from: from, size: size}, nil
}

// Query returns the clause tree.
func (r Request) Query() Clause { return r.query }

// Sort returns the normalized sort keys.
func (r Request) Sort() []SortField { return r.sort }

// Aggs returns the named aggregations.
func (r Request) Aggs() map[string]Aggregation { return r.aggs }

// From returns the offset of the first hit.
func (r Request) From() int { return r.from }

// Size returns the page size.
func (r Request) Size() int { return r.size }

// CheckFields validates sort and aggregation fields against a mapping.
func (r Request) CheckFields(m mapping.Mapping) error {
	if err := CheckSortFields(r.sort, m); err != nil {
		return err
	}
	return CheckAggFields(r.aggs, m)
}
