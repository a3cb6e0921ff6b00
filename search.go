package syncdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/syncdex/internal/domain/search/query"
	"github.com/kailas-cloud/syncdex/internal/domain/search/result"
)

// Clause is one node of a query tree.
type Clause = query.Clause

// Aggregation is one named aggregation request.
type Aggregation = query.Aggregation

// Bucket is one group of a terms aggregation.
type Bucket = result.Bucket

// Fuzziness is the allowed edit distance of match and fuzzy clauses.
type Fuzziness = query.Fuzziness

// SortField is one normalized sort key.
type SortField = query.SortField

// SortEntry is one field -> direction pair of an ordered sort.
type SortEntry = query.OrderedEntry

// OrderedSort is an insertion-ordered sort mapping, e.g.
// OrderedSort{{"name.keyword", "asc"}, {"price", "desc"}}.
type OrderedSort = query.Ordered

// MatchAll matches every document.
func MatchAll() Clause { return query.MatchAll{} }

// Match is a full-text match on one field.
func Match(field, text string) query.Match {
	return query.Match{Field: field, Query: text}
}

// MatchFuzzy is a full-text match tolerating typos.
func MatchFuzzy(field, text string, f Fuzziness) query.Match {
	return query.Match{Field: field, Query: text, Fuzziness: f}
}

// Fuzzy matches terms within an edit distance of value.
func Fuzzy(field, value string, f Fuzziness) query.Fuzzy {
	return query.Fuzzy{Field: field, Value: value, Fuzziness: f}
}

// Edits sets a fixed edit distance (0-2).
func Edits(n int) Fuzziness { return query.Edits(n) }

// Auto lets the engine choose the edit distance from the term length.
func Auto() Fuzziness { return query.FuzzinessAuto() }

// Range matches values between from and to, both inclusive. A nil bound
// leaves that side open.
func Range(field string, from, to any) query.Range {
	return query.Between(field, from, to)
}

// Term matches an exact value. Field "_id" matches document ids.
func Term(field string, value any) query.Term {
	return query.Term{Field: field, Value: value}
}

// Bool combines clauses. Zero groups are left out.
type Bool = query.Bool

// Terms groups matches by the values of field, at most size buckets.
func Terms(field string, size int) Aggregation { return query.Terms(field, size) }

// Avg averages a numeric field.
func Avg(field string) Aggregation { return query.Metric(query.AggAvg, field) }

// Sum sums a numeric field.
func Sum(field string) Aggregation { return query.Metric(query.AggSum, field) }

// Min is the smallest value of a field.
func Min(field string) Aggregation { return query.Metric(query.AggMin, field) }

// Max is the largest value of a field.
func Max(field string) Aggregation { return query.Metric(query.AggMax, field) }

// Cardinality approximates the number of distinct values of a field.
func Cardinality(field string) Aggregation { return query.Metric(query.AggCardinality, field) }

// ValueCount counts the values of a field.
func ValueCount(field string) Aggregation { return query.Metric(query.AggValueCount, field) }

// SearchOption configures one search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	sort any
	aggs map[string]Aggregation
	from int
	size int
}

// Sort orders hits. It accepts "field:dir" strings (comma-separated for
// several keys), []string of those, OrderedSort, []SortField, JSON bytes
// holding any of these or a JSON object, and single-key maps. The first key
// is the primary one.
func Sort(spec any) SearchOption {
	return func(c *searchConfig) { c.sort = spec }
}

// Agg adds a named aggregation.
func Agg(name string, a Aggregation) SearchOption {
	return func(c *searchConfig) {
		if c.aggs == nil {
			c.aggs = make(map[string]Aggregation)
		}
		c.aggs[name] = a
	}
}

// From skips the first n hits.
func From(n int) SearchOption {
	return func(c *searchConfig) { c.from = n }
}

// Size bounds the hits returned. Default: 10. Size(0) together with
// aggregations skips hits and returns aggregations only.
func Size(n int) SearchOption {
	return func(c *searchConfig) { c.size = n }
}

// Hit is a typed search hit.
type Hit[T any] struct {
	ID         string
	Item       T
	Score      float64
	SortValues []any
}

// AggregationResult is either buckets or a single metric value.
type AggregationResult struct {
	Buckets []Bucket
	// Value is nil for bucket aggregations and for metrics over no documents.
	Value *float64
}

// SearchResult is a typed result set.
type SearchResult[T any] struct {
	Total        int64
	MaxScore     float64
	Took         time.Duration
	Hits         []Hit[T]
	Aggregations map[string]AggregationResult
}

// Search runs q against the model's index.
func (m *Model[T]) Search(ctx context.Context, q Clause, opts ...SearchOption) (*SearchResult[T], error) {
	start := time.Now()
	res, err := m.search(ctx, q, opts)
	m.client.obs.observe("search", time.Since(start), err)
	return res, err
}

func (m *Model[T]) search(ctx context.Context, q Clause, opts []SearchOption) (*SearchResult[T], error) {
	cfg := searchConfig{size: query.DefaultSize}
	for _, o := range opts {
		o(&cfg)
	}

	var sort []query.SortField
	if cfg.sort != nil {
		var err error
		if sort, err = query.NormalizeSort(cfg.sort); err != nil {
			return nil, fmt.Errorf("search %s: %w", m.IndexName(), err)
		}
	}
	req, err := query.NewRequest(q, sort, cfg.aggs, cfg.from, cfg.size)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", m.IndexName(), err)
	}

	res, err := m.client.searchSvc.Search(ctx, m.Collection(), req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", m.IndexName(), err)
	}
	return toTyped[T](m.meta, res)
}

func toTyped[T any](meta *schemaMeta, res result.SearchResult) (*SearchResult[T], error) {
	out := &SearchResult[T]{
		Total:    res.Total(),
		MaxScore: res.MaxScore(),
		Took:     time.Duration(res.Took()) * time.Millisecond,
		Hits:     make([]Hit[T], 0, len(res.Hits())),
	}
	for _, h := range res.Hits() {
		v, err := meta.fromSource(h.ID(), h.Source())
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", h.ID(), err)
		}
		item, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("hit %s: type assertion failed", h.ID())
		}
		out.Hits = append(out.Hits, Hit[T]{ID: h.ID(), Item: item, Score: h.Score(), SortValues: h.SortValues()})
	}
	if aggs := res.Aggregations(); len(aggs) > 0 {
		out.Aggregations = make(map[string]AggregationResult, len(aggs))
		for name, a := range aggs {
			if a.IsBucket() {
				out.Aggregations[name] = AggregationResult{Buckets: a.Buckets()}
				continue
			}
			out.Aggregations[name] = AggregationResult{Value: a.Value()}
		}
	}
	return out, nil
}

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	model *Model[T]
	query Clause
	opts  []SearchOption
}

// Query starts a fluent search. A nil clause matches everything.
func (m *Model[T]) Query(q Clause) *SearchBuilder[T] {
	return &SearchBuilder[T]{model: m, query: q}
}

// Sort orders hits; see Sort.
func (b *SearchBuilder[T]) Sort(spec any) *SearchBuilder[T] {
	b.opts = append(b.opts, Sort(spec))
	return b
}

// Agg adds a named aggregation.
func (b *SearchBuilder[T]) Agg(name string, a Aggregation) *SearchBuilder[T] {
	b.opts = append(b.opts, Agg(name, a))
	return b
}

// Page sets the window of hits returned.
func (b *SearchBuilder[T]) Page(from, size int) *SearchBuilder[T] {
	b.opts = append(b.opts, From(from), Size(size))
	return b
}

// Do executes the search.
func (b *SearchBuilder[T]) Do(ctx context.Context) (*SearchResult[T], error) {
	return b.model.Search(ctx, b.query, b.opts...)
}
