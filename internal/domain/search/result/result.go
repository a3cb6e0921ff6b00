package result

import "encoding/json"

// Hit is a single search hit in engine order.
type Hit struct {
	id         string
	index      string
	score      float64
	source     map[string]any
	rawSource  json.RawMessage
	sortValues []any
}

// NewHit creates a search hit.
func NewHit(id, index string, score float64, source map[string]any, raw json.RawMessage, sortValues []any) Hit {
	return Hit{id: id, index: index, score: score, source: source, rawSource: raw, sortValues: sortValues}
}

// ID returns the document identifier (equal to the store id).
func (h Hit) ID() string { return h.id }

// Index returns the index the hit came from.
func (h Hit) Index() string { return h.index }

// Score returns the relevance score, 0 when the engine did not score.
func (h Hit) Score() float64 { return h.score }

// Source returns the indexed payload with numbers as int64 or float64.
func (h Hit) Source() map[string]any { return h.source }

// RawSource returns the payload exactly as the engine sent it.
func (h Hit) RawSource() json.RawMessage { return h.rawSource }

// SortValues returns the sort key values of the hit, if sorted.
func (h Hit) SortValues() []any { return h.sortValues }

// Bucket is one group of a bucket aggregation.
type Bucket struct {
	Key         any // string, int64 or float64
	KeyAsString string
	DocCount    int64
}

// Aggregation is either a list of buckets or a single metric value.
type Aggregation struct {
	buckets []Bucket
	value   *float64
	bucket  bool
}

// NewBuckets creates a bucket aggregation result.
func NewBuckets(b []Bucket) Aggregation { return Aggregation{buckets: b, bucket: true} }

// NewValue creates a metric aggregation result. A nil value means the
// engine had no documents to compute it over.
func NewValue(v *float64) Aggregation { return Aggregation{value: v} }

// IsBucket reports whether the aggregation carries buckets.
func (a Aggregation) IsBucket() bool { return a.bucket }

// Buckets returns the buckets in engine order (or key order when requested).
func (a Aggregation) Buckets() []Bucket { return a.buckets }

// Value returns the metric value, nil when absent.
func (a Aggregation) Value() *float64 { return a.value }

// SearchResult is a projected engine response.
type SearchResult struct {
	total        int64
	relation     string
	maxScore     float64
	took         int64
	hits         []Hit
	aggregations map[string]Aggregation
}

// New creates a search result.
func New(total int64, relation string, maxScore float64, took int64, hits []Hit, aggs map[string]Aggregation) SearchResult {
	return SearchResult{
		total: total, relation: relation, maxScore: maxScore, took: took,
		hits: hits, aggregations: aggs,
	}
}

// Total returns the number of matching documents as reported by the engine.
func (r SearchResult) Total() int64 { return r.total }

// TotalRelation returns "eq" or "gte" (lower bound).
func (r SearchResult) TotalRelation() string { return r.relation }

// MaxScore returns the highest score among hits.
func (r SearchResult) MaxScore() float64 { return r.maxScore }

// Took returns the engine-side duration in milliseconds.
func (r SearchResult) Took() int64 { return r.took }

// Hits returns hits in engine order.
func (r SearchResult) Hits() []Hit { return r.hits }

// Aggregations returns named aggregation results.
func (r SearchResult) Aggregations() map[string]Aggregation { return r.aggregations }

// Aggregation returns one named aggregation.
func (r SearchResult) Aggregation(name string) (Aggregation, bool) {
	a, ok := r.aggregations[name]
	return a, ok
}
