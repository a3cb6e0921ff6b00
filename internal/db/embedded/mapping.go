package embedded

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/domain/geo"
)

// sourceField stores the original JSON payload. User fields can never start
// with an underscore, so it cannot collide.
const sourceField = "__source"

const keywordSuffix = ".keyword"

var analyzers = map[string]string{
	"":         "standard",
	"standard": "standard",
	"simple":   "simple",
	"keyword":  "keyword",
	"english":  "en",
	"en":       "en",
}

func buildMapping(def *db.IndexDefinition) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = "standard"

	dm := bleve.NewDocumentStaticMapping()
	if def.Dynamic {
		dm = bleve.NewDocumentMapping()
	}

	src := bleve.NewTextFieldMapping()
	src.Index = false
	src.Store = true
	src.IncludeInAll = false
	dm.AddFieldMappingsAt(sourceField, src)

	for _, f := range def.Fields {
		fms, err := fieldMappings(f)
		if err != nil {
			return nil, err
		}
		dm.AddFieldMappingsAt(f.Name, fms...)
	}
	im.DefaultMapping = dm
	return im, nil
}

func fieldMappings(f db.IndexField) ([]*mapping.FieldMapping, error) {
	var fm *mapping.FieldMapping
	switch f.Type {
	case db.IndexFieldText:
		fm = bleve.NewTextFieldMapping()
		a, ok := analyzers[f.Analyzer]
		if !ok {
			return nil, fmt.Errorf("unsupported analyzer %q on field %q", f.Analyzer, f.Name)
		}
		fm.Analyzer = a
	case db.IndexFieldKeyword:
		fm = bleve.NewKeywordFieldMapping()
	case db.IndexFieldDouble:
		fm = bleve.NewNumericFieldMapping()
	case db.IndexFieldDate:
		fm = bleve.NewDateTimeFieldMapping()
	case db.IndexFieldBoolean:
		fm = bleve.NewBooleanFieldMapping()
	case db.IndexFieldGeoPoint:
		fm = bleve.NewGeoPointFieldMapping()
	default:
		return nil, fmt.Errorf("unsupported field type %q on field %q", f.Type, f.Name)
	}
	fm.Store = false
	fm.IncludeInAll = false
	out := []*mapping.FieldMapping{fm}

	if f.Type == db.IndexFieldText && f.Keyword {
		kw := bleve.NewKeywordFieldMapping()
		kw.Name = f.Name + keywordSuffix
		kw.Store = false
		kw.IncludeInAll = false
		out = append(out, kw)
	}
	return out, nil
}

// fieldType resolves a query field to its mapped type. "name.keyword" of a
// text field with a keyword sub-field resolves to keyword. Unmapped fields
// report ok=false.
func fieldType(def *db.IndexDefinition, name string) (db.IndexFieldType, bool) {
	base, sub := name, false
	if strings.HasSuffix(name, keywordSuffix) {
		base, sub = strings.TrimSuffix(name, keywordSuffix), true
	}
	for _, f := range def.Fields {
		if f.Name == name {
			return f.Type, true
		}
		if sub && f.Name == base && f.Keyword {
			return db.IndexFieldKeyword, true
		}
	}
	return "", false
}

// rejection is a per-document mapping failure, reported as status 400.
func rejection(op, index, field string, v any, want db.IndexFieldType) error {
	return &db.Error{
		Op: op, Index: index, Status: 400, Type: "mapper_parsing_exception",
		Reason: fmt.Sprintf("failed to parse field [%s] of type [%s]: %v", field, want, v),
		Err:    db.ErrRejected,
	}
}

// prepare checks payload against the index mapping the way the cluster's
// mapper does and returns the stored source plus the bleve document.
func prepare(op string, def *db.IndexDefinition, payload map[string]any) (json.RawMessage, map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, &db.Error{Op: op, Index: def.Name, Status: 400, Type: "not_x_content_exception", Reason: err.Error(), Err: db.ErrMalformedRequest}
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, &db.Error{Op: op, Index: def.Name, Status: 400, Reason: err.Error(), Err: db.ErrMalformedRequest}
	}

	for _, f := range def.Fields {
		v, ok := doc[f.Name]
		if !ok || v == nil {
			continue
		}
		conv, err := coerce(f.Type, v)
		if err != nil {
			return nil, nil, rejection(op, def.Name, f.Name, v, f.Type)
		}
		doc[f.Name] = conv
	}
	if !def.Dynamic {
		for k := range doc {
			if _, ok := fieldType(def, k); !ok {
				delete(doc, k)
			}
		}
	}
	doc[sourceField] = string(raw)
	return raw, doc, nil
}

// coerce converts one JSON value to what bleve indexes for type t.
// Arrays are coerced element-wise.
func coerce(t db.IndexFieldType, v any) (any, error) {
	if arr, ok := v.([]any); ok && t != db.IndexFieldGeoPoint {
		out := make([]any, 0, len(arr))
		for _, e := range arr {
			if e == nil {
				continue
			}
			c, err := coerce(t, e)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	}

	switch t {
	case db.IndexFieldText, db.IndexFieldKeyword:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(x), nil
		}
	case db.IndexFieldDouble:
		if f, ok := toNumber(v); ok {
			return f, nil
		}
	case db.IndexFieldDate:
		if ts, ok := toTime(v); ok {
			return ts.UTC().Format(time.RFC3339Nano), nil
		}
	case db.IndexFieldBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			if x == "true" || x == "false" {
				return x == "true", nil
			}
		}
	case db.IndexFieldGeoPoint:
		p, err := geo.Parse(v)
		if err == nil {
			return p.Map(), nil
		}
	}
	return nil, fmt.Errorf("cannot index %T as %s", v, t)
}

// toNumber accepts JSON numbers and numeric strings.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toTime accepts date strings and epoch milliseconds.
func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case string:
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, x); err == nil {
				return ts, true
			}
		}
	case float64, int64, json.Number:
		if ms, ok := toNumber(x); ok {
			return time.UnixMilli(int64(ms)), true
		}
	}
	return time.Time{}, false
}
