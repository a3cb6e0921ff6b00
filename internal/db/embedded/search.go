package embedded

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain"
	dsl "github.com/kailas-cloud/syncdex/internal/domain/search/query"
)

// searchRequest is a decoded search body.
type searchRequest struct {
	query dsl.Clause
	sort  []dsl.SortField
	aggs  map[string]dsl.Aggregation
	from  int
	size  int
}

type match struct {
	id     string
	score  float64
	raw    json.RawMessage
	source map[string]any
}

// Search evaluates a query body and returns a cluster-shaped JSON response.
// The query is matched and scored by bleve; sorting, paging and aggregations
// are applied over the full match set, capped at the result window.
func (e *Engine) Search(ctx context.Context, name string, body map[string]any) ([]byte, error) {
	start := time.Now()
	idx, err := e.lookup(db.OpSearch, name)
	if err != nil {
		return nil, err
	}
	req, err := decodeRequest(body)
	if err != nil {
		return nil, badRequest(name, err)
	}

	for name, a := range req.aggs {
		if t, ok := fieldType(idx.def, a.Field); ok && t == db.IndexFieldText {
			return nil, &db.Error{
				Op: db.OpSearch, Index: idx.def.Name, Status: 400, Type: "illegal_argument_exception",
				Reason: fmt.Sprintf("aggregation [%s]: text field [%s] is not aggregatable, use a keyword field", name, a.Field),
				Err:    db.ErrMalformedRequest,
			}
		}
	}

	q, err := compiler{def: idx.def}.compile(req.query)
	if err != nil {
		return nil, badRequest(name, err)
	}

	count, err := idx.bi.DocCount()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Index: name, Status: 500, Reason: err.Error(), Err: db.ErrTransient}
	}
	window := int(min(count, uint64(dsl.MaxWindow)))

	breq := bleve.NewSearchRequestOptions(q, window, 0, false)
	breq.Fields = []string{sourceField}
	res, err := idx.bi.SearchInContext(ctx, breq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &db.Error{Op: db.OpSearch, Index: name, Reason: err.Error(), Err: db.ErrTimeout}
		}
		return nil, &db.Error{Op: db.OpSearch, Index: name, Status: 500, Type: "search_phase_execution_exception", Reason: err.Error(), Err: db.ErrTransient}
	}

	matches := make([]match, 0, len(res.Hits))
	for _, h := range res.Hits {
		raw, _ := h.Fields[sourceField].(string)
		m := match{id: h.ID, score: h.Score, raw: json.RawMessage(raw)}
		if raw != "" {
			m.source = decodeSource(m.raw)
		}
		matches = append(matches, m)
	}

	sortMatches(matches, req.sort)
	scored := len(req.sort) == 0 || req.sort[0].Field == "_score"

	resp := map[string]any{
		"took":      time.Since(start).Milliseconds(),
		"timed_out": false,
		"_shards":   map[string]any{"total": 1, "successful": 1, "skipped": 0, "failed": 0},
		"hits": map[string]any{
			"total":     map[string]any{"value": res.Total, "relation": "eq"},
			"max_score": maxScore(matches, scored),
			"hits":      renderHits(name, page(matches, req.from, req.size), req.sort, scored),
		},
	}
	if len(req.aggs) > 0 {
		resp["aggregations"] = aggregate(matches, req.aggs)
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Index: name, Status: 500, Reason: err.Error(), Err: db.ErrTransient}
	}
	return out, nil
}

func badRequest(index string, err error) error {
	errType := "parsing_exception"
	var uc *domain.UnsupportedClauseError
	if errors.As(err, &uc) {
		errType = "unsupported_clause_exception"
	}
	return &db.Error{Op: db.OpSearch, Index: index, Status: 400, Type: errType, Reason: err.Error(), Err: db.ErrMalformedRequest}
}

// decodeRequest reads the body the way it would arrive over the wire.
func decodeRequest(body map[string]any) (searchRequest, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return searchRequest{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var wire map[string]any
	if err := dec.Decode(&wire); err != nil {
		return searchRequest{}, err
	}

	req := searchRequest{query: dsl.MatchAll{}, size: dsl.DefaultSize}
	for key, v := range wire {
		switch key {
		case "query":
			obj, ok := v.(map[string]any)
			if !ok {
				return searchRequest{}, fmt.Errorf("query must be an object")
			}
			if req.query, err = dsl.ParseClause(obj); err != nil {
				return searchRequest{}, err
			}
		case "sort":
			if req.sort, err = dsl.NormalizeSort(v); err != nil {
				return searchRequest{}, err
			}
		case "aggs", "aggregations":
			obj, ok := v.(map[string]any)
			if !ok {
				return searchRequest{}, fmt.Errorf("%s must be an object", key)
			}
			if req.aggs, err = dsl.ParseAggs(obj); err != nil {
				return searchRequest{}, err
			}
		case "from":
			if req.from, err = intParam(key, v); err != nil {
				return searchRequest{}, err
			}
		case "size":
			if req.size, err = intParam(key, v); err != nil {
				return searchRequest{}, err
			}
		case "track_total_hits", "track_scores", "_source", "timeout":
		default:
			return searchRequest{}, fmt.Errorf("unknown key [%s] in search body", key)
		}
	}
	if req.from < 0 || req.size < 0 {
		return searchRequest{}, fmt.Errorf("from and size must be >= 0")
	}
	if req.from+req.size > dsl.MaxWindow {
		return searchRequest{}, fmt.Errorf("result window is too large, from + size must be <= %d", dsl.MaxWindow)
	}
	return req, nil
}

func intParam(key string, v any) (int, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return int(i), nil
}

func decodeSource(raw json.RawMessage) map[string]any {
	var src map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&src); err != nil {
		return nil
	}
	return src
}

// sortMatches orders by the sort keys, or by score when there are none.
// Missing values sort last in both directions. Ties fall back to the id.
func sortMatches(ms []match, keys []dsl.SortField) {
	if len(keys) == 0 {
		keys = []dsl.SortField{{Field: "_score", Order: dsl.Desc}}
	}
	sort.SliceStable(ms, func(i, j int) bool {
		for _, k := range keys {
			a, b := sortValue(ms[i], k.Field), sortValue(ms[j], k.Field)
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if a == nil || b == nil {
				return b == nil
			}
			if k.Order == dsl.Desc {
				return c > 0
			}
			return c < 0
		}
		return ms[i].id < ms[j].id
	})
}

// sortValue extracts the value a sort key orders by.
func sortValue(m match, field string) any {
	switch field {
	case "_score":
		return m.score
	case idField:
		return m.id
	}
	v, ok := lookupPath(m.source, strings.TrimSuffix(field, keywordSuffix))
	if !ok {
		return nil
	}
	if arr, isArr := v.([]any); isArr {
		if len(arr) == 0 {
			return nil
		}
		v = arr[0]
	}
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case string, bool:
		return x
	case nil:
		return nil
	default:
		return fmt.Sprint(x)
	}
}

// compareValues orders numbers numerically and everything else as text.
// nil compares after any value.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	fa, aNum := numeric(a)
	fb, bNum := numeric(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func lookupPath(src map[string]any, path string) (any, bool) {
	if v, ok := src[path]; ok {
		return v, true
	}
	cur := any(src)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func page(ms []match, from, size int) []match {
	if from >= len(ms) {
		return nil
	}
	return ms[from:min(from+size, len(ms))]
}

func maxScore(ms []match, scored bool) any {
	if !scored || len(ms) == 0 {
		return nil
	}
	best := math.Inf(-1)
	for _, m := range ms {
		best = math.Max(best, m.score)
	}
	return best
}

func renderHits(index string, ms []match, keys []dsl.SortField, scored bool) []any {
	out := make([]any, 0, len(ms))
	for _, m := range ms {
		h := map[string]any{
			"_index":  index,
			"_id":     m.id,
			"_score":  nil,
			"_source": m.raw,
		}
		if scored {
			h["_score"] = m.score
		}
		if len(m.raw) == 0 {
			h["_source"] = map[string]any{}
		}
		if len(keys) > 0 {
			vals := make([]any, len(keys))
			for i, k := range keys {
				vals[i] = sortValue(m, k.Field)
			}
			h["sort"] = vals
		}
		out = append(out, h)
	}
	return out
}
