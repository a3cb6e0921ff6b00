package query

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// Aggregation limits.
const (
	MaxAggregations  = 32
	DefaultTermsSize = 10
	MaxTermsSize     = 10000
)

// AggType is an aggregation kind.
type AggType string

// Supported aggregation kinds.
const (
	AggTerms       AggType = "terms"
	AggAvg         AggType = "avg"
	AggSum         AggType = "sum"
	AggMin         AggType = "min"
	AggMax         AggType = "max"
	AggCardinality AggType = "cardinality"
	AggValueCount  AggType = "value_count"
)

// IsBucket reports whether the aggregation yields buckets rather than a value.
func (t AggType) IsBucket() bool { return t == AggTerms }

func (t AggType) isValid() bool {
	switch t {
	case AggTerms, AggAvg, AggSum, AggMin, AggMax, AggCardinality, AggValueCount:
		return true
	}
	return false
}

// Aggregation is one named aggregation request.
type Aggregation struct {
	Type  AggType
	Field string
	Size  int // terms only; 0 means DefaultTermsSize
}

// Terms builds a terms aggregation.
func Terms(field string, size int) Aggregation {
	return Aggregation{Type: AggTerms, Field: field, Size: size}
}

// Metric builds a single-value metric aggregation.
func Metric(t AggType, field string) Aggregation {
	return Aggregation{Type: t, Field: field}
}

// Validate checks the aggregation shape.
func (a Aggregation) Validate(name string) error {
	if name == "" {
		return invalid("aggs: name is required")
	}
	if !a.Type.isValid() {
		return &domain.UnsupportedClauseError{Kind: "aggs." + string(a.Type)}
	}
	if a.Field == "" {
		return invalid("aggs: %q needs a field", name)
	}
	if a.Size < 0 || a.Size > MaxTermsSize {
		return invalid("aggs: %q size must be between 0 and %d", name, MaxTermsSize)
	}
	if a.Size != 0 && a.Type != AggTerms {
		return invalid("aggs: %q size only applies to terms", name)
	}
	return nil
}

// Render returns the engine fragment {"<type>": {"field": ..}}.
func (a Aggregation) Render() map[string]any {
	body := map[string]any{"field": a.Field}
	if a.Type == AggTerms {
		size := a.Size
		if size == 0 {
			size = DefaultTermsSize
		}
		body["size"] = size
	}
	return map[string]any{string(a.Type): body}
}

// ParseAggs decodes {"name": {"terms": {"field": "x", "size": 5}}}.
func ParseAggs(raw map[string]any) (map[string]Aggregation, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]Aggregation, len(raw))
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		spec, ok := raw[name].(map[string]any)
		if !ok || len(spec) != 1 {
			return nil, invalid("aggs: %q must have exactly one aggregation type", name)
		}
		var a Aggregation
		for t, body := range spec {
			a.Type = AggType(t)
			params, ok := body.(map[string]any)
			if !ok {
				return nil, invalid("aggs: %q params must be an object", name)
			}
			if f, present := params["field"]; present {
				s, ok := f.(string)
				if !ok {
					return nil, invalid("aggs: %q field must be a string", name)
				}
				a.Field = s
			}
			if sz, present := params["size"]; present {
				n, ok := normalizeScalar(sz)
				i, isInt := n.(int64)
				if !ok || !isInt {
					return nil, invalid("aggs: %q size must be an integer", name)
				}
				a.Size = int(i)
			}
		}
		if err := a.Validate(name); err != nil {
			return nil, err
		}
		out[name] = a
	}
	return out, nil
}

// CheckAggFields rejects aggregation fields the mapping does not know.
func CheckAggFields(aggs map[string]Aggregation, m mapping.Mapping) error {
	for _, name := range slices.Sorted(maps.Keys(aggs)) {
		if f := aggs[name].Field; !m.IsKnown(f) {
			return invalid("aggs: %q targets unknown field %q", name, f)
		}
	}
	return nil
}
