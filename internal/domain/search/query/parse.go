package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

// ParseJSON decodes a raw JSON query DSL object into a clause tree.
func ParseJSON(data []byte) (Clause, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, invalid("query is not a JSON object: %v", err)
	}
	return ParseClause(raw)
}

// ParseClause decodes one DSL object, e.g. {"range": {"price": {"from": 1}}}.
// Unknown kinds fail with *domain.UnsupportedClauseError; malformed bodies of
// known kinds fail with domain.ErrValidation.
func ParseClause(raw map[string]any) (Clause, error) {
	if len(raw) != 1 {
		return nil, invalid("clause must have exactly one kind, got %d keys", len(raw))
	}
	var kind string
	var body any
	for k, v := range raw {
		kind, body = k, v
	}

	var (
		c   Clause
		err error
	)
	switch Kind(kind) {
	case KindMatchAll:
		c = MatchAll{}
	case KindMatch:
		c, err = parseMatch(body)
	case KindFuzzy:
		c, err = parseFuzzy(body)
	case KindRange:
		c, err = parseRange(body)
	case KindTerm:
		c, err = parseTerm(body)
	case KindBool:
		c, err = parseBool(body)
	default:
		return nil, &domain.UnsupportedClauseError{Kind: kind}
	}
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// singleField unwraps {"<field>": <spec>} bodies shared by leaf clauses.
func singleField(kind Kind, body any) (string, any, error) {
	m, ok := body.(map[string]any)
	if !ok {
		return "", nil, invalid("%s: body must be an object", kind)
	}
	if len(m) != 1 {
		return "", nil, invalid("%s: exactly one field expected, got %d", kind, len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}

func parseMatch(body any) (Clause, error) {
	field, spec, err := singleField(KindMatch, body)
	if err != nil {
		return nil, err
	}
	m := Match{Field: field}
	obj, isObj := spec.(map[string]any)
	if !isObj {
		q, ok := scalarString(spec)
		if !ok {
			return nil, invalid("match: query for %q must be a scalar", field)
		}
		m.Query = q
		return m, nil
	}
	q, ok := scalarString(obj["query"])
	if !ok {
		return nil, invalid("match: query for %q must be a scalar", field)
	}
	m.Query = q
	if fz, present := obj["fuzziness"]; present {
		if m.Fuzziness, err = parseFuzziness(fz); err != nil {
			return nil, err
		}
	}
	if op, present := obj["operator"]; present {
		s, ok := op.(string)
		if !ok {
			return nil, invalid("match: operator must be a string")
		}
		m.Operator = Operator(strings.ToLower(s))
	}
	return m, nil
}

func parseFuzzy(body any) (Clause, error) {
	field, spec, err := singleField(KindFuzzy, body)
	if err != nil {
		return nil, err
	}
	f := Fuzzy{Field: field}
	obj, isObj := spec.(map[string]any)
	if !isObj {
		v, ok := scalarString(spec)
		if !ok {
			return nil, invalid("fuzzy: value for %q must be a scalar", field)
		}
		f.Value = v
		return f, nil
	}
	v, ok := scalarString(obj["value"])
	if !ok {
		return nil, invalid("fuzzy: value for %q must be a scalar", field)
	}
	f.Value = v
	if fz, present := obj["fuzziness"]; present {
		if f.Fuzziness, err = parseFuzziness(fz); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func parseFuzziness(v any) (Fuzziness, error) {
	if s, ok := v.(string); ok {
		if strings.EqualFold(s, "auto") {
			return FuzzinessAuto(), nil
		}
	}
	n, ok := normalizeScalar(v)
	if !ok {
		return Fuzziness{}, invalid("fuzziness must be an integer or AUTO, got %v", v)
	}
	switch t := n.(type) {
	case int64:
		return Edits(int(t)), nil
	case string:
		var i int
		if _, err := fmt.Sscanf(t, "%d", &i); err == nil && fmt.Sprint(i) == t {
			return Edits(i), nil
		}
	}
	return Fuzziness{}, invalid("fuzziness must be an integer or AUTO, got %v", v)
}

func parseRange(body any) (Clause, error) {
	field, spec, err := singleField(KindRange, body)
	if err != nil {
		return nil, err
	}
	obj, ok := spec.(map[string]any)
	if !ok {
		return nil, invalid("range: bounds for %q must be an object", field)
	}
	r := Range{Field: field}
	for key, v := range obj {
		switch key {
		case "from", "gte":
			if r.GTE != nil {
				return nil, invalid("range: duplicate lower bound for %q", field)
			}
			r.GTE = bound(v)
		case "to", "lte":
			if r.LTE != nil {
				return nil, invalid("range: duplicate upper bound for %q", field)
			}
			r.LTE = bound(v)
		case "gt":
			r.GT = bound(v)
		case "lt":
			r.LT = bound(v)
		case "format", "boost", "time_zone":
		default:
			return nil, invalid("range: unknown key %q for %q", key, field)
		}
	}
	return r, nil
}

// bound normalizes numeric bounds and leaves anything else for Validate to reject.
func bound(v any) any {
	if n, ok := normalizeScalar(v); ok {
		return n
	}
	return v
}

func parseTerm(body any) (Clause, error) {
	field, spec, err := singleField(KindTerm, body)
	if err != nil {
		return nil, err
	}
	if obj, ok := spec.(map[string]any); ok {
		spec = obj["value"]
	}
	if n, ok := normalizeScalar(spec); ok {
		spec = n
	}
	return Term{Field: field, Value: spec}, nil
}

func parseBool(body any) (Clause, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, invalid("bool: body must be an object")
	}
	var b Bool
	var err error
	for _, key := range slices.Sorted(maps.Keys(obj)) {
		v := obj[key]
		switch key {
		case "must":
			b.Must, err = parseClauseList(key, v)
		case "should":
			b.Should, err = parseClauseList(key, v)
		case "must_not":
			b.MustNot, err = parseClauseList(key, v)
		case "filter":
			b.Filter, err = parseClauseList(key, v)
		case "minimum_should_match":
			n, ok := normalizeScalar(v)
			i, isInt := n.(int64)
			if !ok || !isInt {
				return nil, invalid("bool: minimum_should_match must be an integer")
			}
			msm := int(i)
			b.MinimumShouldMatch = &msm
		case "boost":
		default:
			return nil, invalid("bool: unknown key %q", key)
		}
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// parseClauseList accepts a single clause object or an array of them.
func parseClauseList(group string, v any) ([]Clause, error) {
	switch t := v.(type) {
	case map[string]any:
		c, err := ParseClause(t)
		if err != nil {
			return nil, err
		}
		return []Clause{c}, nil
	case []any:
		out := make([]Clause, 0, len(t))
		for i, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, invalid("bool: %s[%d] must be an object", group, i)
			}
			c, err := ParseClause(m)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	default:
		return nil, invalid("bool: %s must be an object or an array", group)
	}
}

func scalarString(v any) (string, bool) {
	n, ok := normalizeScalar(v)
	if !ok {
		return "", false
	}
	switch t := n.(type) {
	case string:
		return t, true
	case int64:
		return fmt.Sprint(t), true
	case float64:
		return fmt.Sprint(t), true
	}
	return "", false
}

// normalizeScalar maps numbers to int64/float64, keeps strings and renders
// times as RFC3339. Anything else (bools, maps, slices, nil) reports false.
func normalizeScalar(v any) (any, bool) {
	switch t := v.(type) {
	case nil, bool:
		return nil, false
	case string:
		return t, true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return float64(rv.Uint()), true
		}
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), true
		}
		return f, true
	case reflect.String:
		return rv.String(), true
	}
	return nil, false
}
