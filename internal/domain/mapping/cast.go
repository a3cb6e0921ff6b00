package mapping

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/geo"
)

// dateLayouts are tried in order for string dates.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Cast converts v to the engine representation of ft.
// A nil result with a nil error means the value is absent and must be omitted.
func Cast(field string, ft Type, v any) (any, error) {
	v, ok := deref(v)
	if !ok {
		return nil, nil
	}

	if ft == GeoPoint {
		if p, err := geo.Parse(normalizeMap(v)); err == nil {
			return p.Map(), nil
		}
	}

	if rv := reflect.ValueOf(v); (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			cv, err := castScalar(field, ft, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			if cv != nil {
				out = append(out, cv)
			}
		}
		return out, nil
	}

	return castScalar(field, ft, v)
}

func castScalar(field string, ft Type, v any) (any, error) {
	v, ok := deref(v)
	if !ok {
		return nil, nil
	}
	mismatch := &domain.MappingMismatchError{Field: field, Type: string(ft), Value: v}

	switch ft {
	case Text, Keyword:
		s, ok := toText(v)
		if !ok {
			return nil, mismatch
		}
		return s, nil
	case Number:
		n, ok := toNumber(v)
		if !ok {
			return nil, mismatch
		}
		return n, nil
	case Date:
		t, ok := toTime(v)
		if !ok {
			return nil, mismatch
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	case Boolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, mismatch
	case GeoPoint:
		p, err := geo.Parse(normalizeMap(v))
		if err != nil {
			return nil, mismatch
		}
		return p.Map(), nil
	default:
		return nil, fmt.Errorf("%w: unknown field type %q", domain.ErrValidation, ft)
	}
}

// deref unwraps pointers and interfaces; false means the value is absent.
func deref(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}

// normalizeMap turns map[string]T into map[string]any so geo.Parse sees one shape.
func normalizeMap(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return v
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

func toText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), true
	case fmt.Stringer:
		return t.String(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}

// toNumber keeps integers as int64 and everything else as float64.
func toNumber(v any) (any, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	case bool:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), true
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	case bool:
		return time.Time{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.UnixMilli(rv.Int()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)), true
	}
	return time.Time{}, false
}
