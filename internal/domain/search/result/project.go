package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

// Options control projection.
type Options struct {
	// SortBucketsByKey reorders buckets by key instead of keeping engine order.
	SortBucketsByKey bool
}

type envelope struct {
	Took     int64  `json:"took"`
	TimedOut bool   `json:"timed_out"`
	Shards   shards `json:"_shards"`
	Hits     *struct {
		Total    json.RawMessage `json:"total"`
		MaxScore json.RawMessage `json:"max_score"`
		Hits     json.RawMessage `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type shards struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

type rawHit struct {
	Index  string          `json:"_index"`
	ID     *string         `json:"_id"`
	Score  json.RawMessage `json:"_score"`
	Source json.RawMessage `json:"_source"`
	Sort   json.RawMessage `json:"sort"`
}

type rawAgg struct {
	Buckets json.RawMessage `json:"buckets"`
	Value   json.RawMessage `json:"value"`
}

type rawBucket struct {
	Key         json.RawMessage `json:"key"`
	KeyAsString string          `json:"key_as_string"`
	DocCount    json.RawMessage `json:"doc_count"`
}

// Project maps a raw engine search response into a SearchResult.
//
// Total is taken verbatim (a number or {"value": n}); a null score becomes 0;
// numbers in sources, sort values and keys become int64 or float64. Any
// structural surprise fails with *domain.MalformedResponseError, and a timed
// out or shard-failed search fails with domain.ErrTransient. There is no
// partial result.
func Project(raw []byte, opts Options) (SearchResult, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return SearchResult{}, domain.NewMalformedResponse("$", err.Error())
	}
	if env.TimedOut {
		return SearchResult{}, fmt.Errorf("%w: search timed out", domain.ErrTransient)
	}
	if env.Shards.Failed > 0 {
		return SearchResult{}, fmt.Errorf("%w: %d of %d shards failed", domain.ErrTransient, env.Shards.Failed, env.Shards.Total)
	}
	if env.Hits == nil {
		return SearchResult{}, domain.NewMalformedResponse("hits", "missing hits envelope")
	}

	total, relation, err := parseTotal(env.Hits.Total)
	if err != nil {
		return SearchResult{}, err
	}
	maxScore, err := parseScore("hits.max_score", env.Hits.MaxScore)
	if err != nil {
		return SearchResult{}, err
	}

	if isNull(env.Hits.Hits) {
		return SearchResult{}, domain.NewMalformedResponse("hits.hits", "missing hits array")
	}
	var rawHits []json.RawMessage
	if err := json.Unmarshal(env.Hits.Hits, &rawHits); err != nil {
		return SearchResult{}, domain.NewMalformedResponse("hits.hits", err.Error())
	}

	hits := make([]Hit, 0, len(rawHits))
	for i, h := range rawHits {
		hit, err := parseHit(i, h)
		if err != nil {
			return SearchResult{}, err
		}
		hits = append(hits, hit)
	}

	var aggs map[string]Aggregation
	if len(env.Aggregations) > 0 {
		aggs = make(map[string]Aggregation, len(env.Aggregations))
		for name, a := range env.Aggregations {
			agg, err := parseAgg(name, a, opts)
			if err != nil {
				return SearchResult{}, err
			}
			aggs[name] = agg
		}
	}

	return New(total, relation, maxScore, env.Took, hits, aggs), nil
}

func parseTotal(raw json.RawMessage) (int64, string, error) {
	if isNull(raw) {
		return 0, "", domain.NewMalformedResponse("hits.total", "missing")
	}
	if raw[0] == '{' {
		var obj struct {
			Value    json.RawMessage `json:"value"`
			Relation string          `json:"relation"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return 0, "", domain.NewMalformedResponse("hits.total", err.Error())
		}
		n, err := parseCount("hits.total.value", obj.Value)
		if err != nil {
			return 0, "", err
		}
		if obj.Relation == "" {
			obj.Relation = "eq"
		}
		return n, obj.Relation, nil
	}
	n, err := parseCount("hits.total", raw)
	return n, "eq", err
}

// parseCount accepts a non-negative integer.
func parseCount(path string, raw json.RawMessage) (int64, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return 0, domain.NewMalformedResponse(path, err.Error())
	}
	n, ok := v.(int64)
	if !ok || n < 0 {
		return 0, domain.NewMalformedResponse(path, fmt.Sprintf("want a non-negative integer, got %v", v))
	}
	return n, nil
}

func parseScore(path string, raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, nil
	}
	v, err := decodeValue(raw)
	if err != nil {
		return 0, domain.NewMalformedResponse(path, err.Error())
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, domain.NewMalformedResponse(path, fmt.Sprintf("want a number, got %v", v))
	}
	return f, nil
}

func parseHit(i int, raw json.RawMessage) (Hit, error) {
	path := fmt.Sprintf("hits.hits[%d]", i)
	var h rawHit
	if err := json.Unmarshal(raw, &h); err != nil {
		return Hit{}, domain.NewMalformedResponse(path, err.Error())
	}
	if h.ID == nil || *h.ID == "" {
		return Hit{}, domain.NewMalformedResponse(path+"._id", "missing")
	}
	score, err := parseScore(path+"._score", h.Score)
	if err != nil {
		return Hit{}, err
	}

	var source map[string]any
	if !isNull(h.Source) {
		v, err := decodeValue(h.Source)
		if err != nil {
			return Hit{}, domain.NewMalformedResponse(path+"._source", err.Error())
		}
		m, ok := v.(map[string]any)
		if !ok {
			return Hit{}, domain.NewMalformedResponse(path+"._source", "not an object")
		}
		source = m
	}

	var sortValues []any
	if !isNull(h.Sort) {
		v, err := decodeValue(h.Sort)
		if err != nil {
			return Hit{}, domain.NewMalformedResponse(path+".sort", err.Error())
		}
		arr, ok := v.([]any)
		if !ok {
			return Hit{}, domain.NewMalformedResponse(path+".sort", "not an array")
		}
		sortValues = arr
	}

	return NewHit(*h.ID, h.Index, score, source, h.Source, sortValues), nil
}

func parseAgg(name string, raw json.RawMessage, opts Options) (Aggregation, error) {
	path := "aggregations." + name
	var a rawAgg
	if err := json.Unmarshal(raw, &a); err != nil {
		return Aggregation{}, domain.NewMalformedResponse(path, err.Error())
	}

	if a.Buckets != nil {
		var rbs []rawBucket
		if err := json.Unmarshal(a.Buckets, &rbs); err != nil {
			return Aggregation{}, domain.NewMalformedResponse(path+".buckets", err.Error())
		}
		buckets := make([]Bucket, 0, len(rbs))
		for i, rb := range rbs {
			bpath := fmt.Sprintf("%s.buckets[%d]", path, i)
			key, err := decodeValue(rb.Key)
			if err != nil || key == nil {
				return Aggregation{}, domain.NewMalformedResponse(bpath+".key", "missing or invalid")
			}
			count, err := parseCount(bpath+".doc_count", rb.DocCount)
			if err != nil {
				return Aggregation{}, err
			}
			buckets = append(buckets, Bucket{Key: key, KeyAsString: rb.KeyAsString, DocCount: count})
		}
		if opts.SortBucketsByKey {
			sortBuckets(buckets)
		}
		return NewBuckets(buckets), nil
	}

	if a.Value != nil {
		if isNull(a.Value) {
			return NewValue(nil), nil
		}
		v, err := parseScore(path+".value", a.Value)
		if err != nil {
			return Aggregation{}, err
		}
		return NewValue(&v), nil
	}

	return Aggregation{}, domain.NewMalformedResponse(path, "neither buckets nor value")
}

// sortBuckets orders numeric keys before string keys, each ascending.
func sortBuckets(b []Bucket) {
	sort.SliceStable(b, func(i, j int) bool {
		fi, iNum := toFloat(b[i].Key)
		fj, jNum := toFloat(b[j].Key)
		switch {
		case iNum && jNum:
			return fi < fj
		case iNum != jNum:
			return iNum
		default:
			return fmt.Sprint(b[i].Key) < fmt.Sprint(b[j].Key)
		}
	})
}

// decodeValue decodes JSON keeping integer precision: integers become int64,
// other numbers float64.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	}
	return 0, false
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
