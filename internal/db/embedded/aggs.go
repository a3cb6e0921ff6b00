package embedded

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	dsl "github.com/kailas-cloud/syncdex/internal/domain/search/query"
)

type bucket struct {
	key   any
	count int64
}

// aggregate computes named aggregations over the match set.
func aggregate(ms []match, aggs map[string]dsl.Aggregation) map[string]any {
	out := make(map[string]any, len(aggs))
	for name, a := range aggs {
		values := collect(ms, a.Field)
		if a.Type == dsl.AggTerms {
			out[name] = termsAgg(values, a.Size)
			continue
		}
		out[name] = map[string]any{"value": metric(a.Type, values)}
	}
	return out
}

// collect returns per-document value lists for field, flattening arrays.
func collect(ms []match, field string) [][]any {
	field = strings.TrimSuffix(field, keywordSuffix)
	out := make([][]any, 0, len(ms))
	for _, m := range ms {
		v, ok := lookupPath(m.source, field)
		if !ok || v == nil {
			out = append(out, nil)
			continue
		}
		var vals []any
		if arr, isArr := v.([]any); isArr {
			for _, e := range arr {
				if e != nil {
					vals = append(vals, scalar(e))
				}
			}
		} else {
			vals = []any{scalar(v)}
		}
		out = append(out, vals)
	}
	return out
}

func scalar(v any) any {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return f
	}
	return v
}

// termsAgg buckets by distinct value, ordered by doc count desc then key asc.
// A document counts once per distinct value it holds.
func termsAgg(docs [][]any, size int) map[string]any {
	if size == 0 {
		size = dsl.DefaultTermsSize
	}
	counts := make(map[string]*bucket)
	for _, vals := range docs {
		seen := make(map[string]bool, len(vals))
		for _, v := range vals {
			k := fmt.Sprintf("%T:%v", v, v)
			if seen[k] {
				continue
			}
			seen[k] = true
			b, ok := counts[k]
			if !ok {
				b = &bucket{key: v}
				counts[k] = b
			}
			b.count++
		}
	}

	buckets := make([]*bucket, 0, len(counts))
	for _, b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].count != buckets[j].count {
			return buckets[i].count > buckets[j].count
		}
		return compareValues(buckets[i].key, buckets[j].key) < 0
	})

	var other int64
	if len(buckets) > size {
		for _, b := range buckets[size:] {
			other += b.count
		}
		buckets = buckets[:size]
	}

	rendered := make([]any, 0, len(buckets))
	for _, b := range buckets {
		entry := map[string]any{"key": b.key, "doc_count": b.count}
		if flag, ok := b.key.(bool); ok {
			entry["key"] = 0
			if flag {
				entry["key"] = 1
			}
			entry["key_as_string"] = fmt.Sprint(flag)
		}
		rendered = append(rendered, entry)
	}
	return map[string]any{
		"doc_count_error_upper_bound": 0,
		"sum_other_doc_count":         other,
		"buckets":                     rendered,
	}
}

// metric computes a single-value aggregation. Avg, min and max over no
// numeric values are null; sum is 0.
func metric(t dsl.AggType, docs [][]any) any {
	switch t {
	case dsl.AggValueCount:
		var n int64
		for _, vals := range docs {
			n += int64(len(vals))
		}
		return n
	case dsl.AggCardinality:
		distinct := make(map[string]bool)
		for _, vals := range docs {
			for _, v := range vals {
				distinct[fmt.Sprintf("%T:%v", v, v)] = true
			}
		}
		return int64(len(distinct))
	}

	var (
		n      int
		sum    float64
		lo, hi = math.Inf(1), math.Inf(-1)
	)
	for _, vals := range docs {
		for _, v := range vals {
			f, ok := numeric(v)
			if !ok {
				continue
			}
			n++
			sum += f
			lo, hi = math.Min(lo, f), math.Max(hi, f)
		}
	}

	switch t {
	case dsl.AggSum:
		return sum
	case dsl.AggAvg:
		if n == 0 {
			return nil
		}
		return sum / float64(n)
	case dsl.AggMin:
		if n == 0 {
			return nil
		}
		return lo
	case dsl.AggMax:
		if n == 0 {
			return nil
		}
		return hi
	}
	return nil
}
