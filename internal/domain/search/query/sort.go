package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// MaxSortFields bounds the number of sort keys.
const MaxSortFields = 16

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SortField is one normalized sort key. The first field is the primary key.
type SortField struct {
	Field string
	Order Order
}

// OrderedEntry is one field -> spec pair of an ordered sort mapping.
// Spec is "asc", "desc", an Order or {"order": "asc"|"desc"}.
type OrderedEntry struct {
	Field string
	Spec  any
}

// Ordered is an insertion-ordered field -> spec mapping.
type Ordered []OrderedEntry

// NormalizeSort turns any accepted sort shape into an ordered list:
//
//   - "field:dir" (comma-separated for several keys)
//   - []string of "field:dir"
//   - SortField, []SortField
//   - Ordered pairs
//   - JSON bytes ([]byte, json.RawMessage) holding a string, an array or an object;
//     object key order is preserved
//   - []any as decoded from JSON arrays
//   - a single-key map[string]any or map[string]string
//
// Multi-key Go maps are rejected because their iteration order is undefined.
// A missing direction defaults to asc, except _score which defaults to desc.
func NormalizeSort(input any) ([]SortField, error) {
	var (
		out []SortField
		err error
	)
	switch t := input.(type) {
	case nil:
		return nil, nil
	case string:
		out, err = parseSortString(t)
	case []string:
		for _, s := range t {
			fields, perr := parseSortString(s)
			if perr != nil {
				return nil, perr
			}
			out = append(out, fields...)
		}
	case SortField:
		out = []SortField{t}
	case []SortField:
		out = append(out, t...)
	case Ordered:
		for _, e := range t {
			sf, perr := sortFromSpec(e.Field, e.Spec)
			if perr != nil {
				return nil, perr
			}
			out = append(out, sf)
		}
	case json.RawMessage:
		out, err = parseSortJSON(t)
	case []byte:
		out, err = parseSortJSON(t)
	case []any:
		out, err = parseSortArray(t)
	case map[string]any:
		out, err = parseSortMap(len(t), func(yield func(string, any) bool) {
			for k, v := range t {
				if !yield(k, v) {
					return
				}
			}
		})
	case map[string]string:
		out, err = parseSortMap(len(t), func(yield func(string, any) bool) {
			for k, v := range t {
				if !yield(k, v) {
					return
				}
			}
		})
	default:
		return nil, invalid("sort: unsupported shape %T", input)
	}
	if err != nil {
		return nil, err
	}
	if err := checkSort(out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkSort(fields []SortField) error {
	if len(fields) > MaxSortFields {
		return invalid("sort: too many fields (max %d)", MaxSortFields)
	}
	seen := make(map[string]bool, len(fields))
	for i := range fields {
		f := &fields[i]
		if f.Field == "" {
			return invalid("sort: field name is required")
		}
		if f.Order == "" {
			f.Order = defaultOrder(f.Field)
		}
		if f.Order != Asc && f.Order != Desc {
			return invalid("sort: invalid order %q for %q", f.Order, f.Field)
		}
		if seen[f.Field] {
			return invalid("sort: duplicate field %q", f.Field)
		}
		seen[f.Field] = true
	}
	return nil
}

func defaultOrder(field string) Order {
	if field == mapping.FieldScore {
		return Desc
	}
	return Asc
}

// parseSortString handles "name.keyword:asc" and "a:asc,b:desc".
func parseSortString(s string) ([]SortField, error) {
	var out []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, hasDir := strings.Cut(part, ":")
		sf := SortField{Field: strings.TrimSpace(field)}
		if hasDir {
			sf.Order = Order(strings.ToLower(strings.TrimSpace(dir)))
		}
		out = append(out, sf)
	}
	if len(out) == 0 {
		return nil, invalid("sort: empty sort string")
	}
	return out, nil
}

func sortFromSpec(field string, spec any) (SortField, error) {
	switch t := spec.(type) {
	case nil:
		return SortField{Field: field}, nil
	case string:
		return SortField{Field: field, Order: Order(strings.ToLower(t))}, nil
	case Order:
		return SortField{Field: field, Order: t}, nil
	case map[string]any:
		o, present := t["order"]
		if !present {
			return SortField{Field: field}, nil
		}
		s, ok := o.(string)
		if !ok {
			return SortField{}, invalid("sort: order for %q must be a string", field)
		}
		return SortField{Field: field, Order: Order(strings.ToLower(s))}, nil
	case map[string]string:
		return SortField{Field: field, Order: Order(strings.ToLower(t["order"]))}, nil
	default:
		return SortField{}, invalid("sort: unsupported spec %T for %q", spec, field)
	}
}

func parseSortMap(n int, each func(yield func(string, any) bool)) ([]SortField, error) {
	if n > 1 {
		return nil, invalid("sort: map with %d keys has no defined order; use query.Ordered or JSON", n)
	}
	var out []SortField
	var err error
	each(func(k string, v any) bool {
		var sf SortField
		sf, err = sortFromSpec(k, v)
		out = append(out, sf)
		return err == nil
	})
	return out, err
}

func parseSortArray(items []any) ([]SortField, error) {
	var out []SortField
	for i, item := range items {
		switch t := item.(type) {
		case string:
			fields, err := parseSortString(t)
			if err != nil {
				return nil, err
			}
			out = append(out, fields...)
		case map[string]any:
			if len(t) != 1 {
				return nil, invalid("sort: element %d must have exactly one field", i)
			}
			for k, v := range t {
				sf, err := sortFromSpec(k, v)
				if err != nil {
					return nil, err
				}
				out = append(out, sf)
			}
		default:
			return nil, invalid("sort: element %d has unsupported type %T", i, item)
		}
	}
	return out, nil
}

// parseSortJSON decodes a JSON sort value keeping object key order.
func parseSortJSON(data []byte) ([]SortField, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, invalid("sort: %v", err)
		}
		return parseSortString(s)
	case '[':
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, invalid("sort: %v", err)
		}
		return parseSortArray(items)
	case '{':
		entries, err := decodeOrderedObject(data)
		if err != nil {
			return nil, invalid("sort: %v", err)
		}
		out := make([]SortField, 0, len(entries))
		for _, e := range entries {
			sf, err := sortFromSpec(e.Field, e.Spec)
			if err != nil {
				return nil, err
			}
			out = append(out, sf)
		}
		return out, nil
	default:
		return nil, invalid("sort: JSON must be a string, an array or an object")
	}
}

// decodeOrderedObject reads a JSON object token by token so key order survives.
func decodeOrderedObject(data []byte) (Ordered, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out Ordered
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("object key is not a string")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, OrderedEntry{Field: key, Spec: v})
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

// CheckSortFields rejects sort keys the mapping does not know.
func CheckSortFields(fields []SortField, m mapping.Mapping) error {
	for _, f := range fields {
		if !m.IsKnown(f.Field) {
			return invalid("sort: unknown field %q", f.Field)
		}
	}
	return nil
}

// RenderSort returns the engine sort array.
func RenderSort(fields []SortField) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = map[string]any{f.Field: map[string]any{"order": string(f.Order)}}
	}
	return out
}
