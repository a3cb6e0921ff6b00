package query

import (
	"fmt"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

// MaxClausesPerGroup is the maximum number of clauses per bool group.
const MaxClausesPerGroup = 64

// MaxFuzzyEdits is the largest edit distance the engine accepts.
const MaxFuzzyEdits = 2

// Kind names a clause in the engine query DSL.
type Kind string

// Supported clause kinds.
const (
	KindMatchAll Kind = "match_all"
	KindMatch    Kind = "match"
	KindFuzzy    Kind = "fuzzy"
	KindRange    Kind = "range"
	KindTerm     Kind = "term"
	KindBool     Kind = "bool"
)

// Clause is one node of a query tree.
type Clause interface {
	Kind() Kind
	// Validate checks the clause and its children.
	Validate() error
	// Render returns the engine DSL fragment, e.g. {"match": {...}}.
	Render() map[string]any
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// MatchAll matches every document.
type MatchAll struct{}

// Kind implements Clause.
func (MatchAll) Kind() Kind { return KindMatchAll }

// Validate implements Clause.
func (MatchAll) Validate() error { return nil }

// Render implements Clause.
func (MatchAll) Render() map[string]any {
	return map[string]any{string(KindMatchAll): map[string]any{}}
}

// Fuzziness is the allowed edit distance for match and fuzzy clauses.
// The zero value means "not set".
type Fuzziness struct {
	auto  bool
	edits int
	set   bool
}

// FuzzinessAuto lets the engine pick the distance from the term length.
func FuzzinessAuto() Fuzziness { return Fuzziness{auto: true, set: true} }

// Edits sets a fixed edit distance.
func Edits(n int) Fuzziness { return Fuzziness{edits: n, set: true} }

// IsSet reports whether a fuzziness was specified.
func (f Fuzziness) IsSet() bool { return f.set }

// IsAuto reports whether the distance is engine-chosen.
func (f Fuzziness) IsAuto() bool { return f.auto }

// EditsFor returns the edit distance for a term, resolving AUTO the way the
// engine does: 0 for 1-2 chars, 1 for 3-5 chars, 2 above.
func (f Fuzziness) EditsFor(term string) int {
	if !f.auto {
		return f.edits
	}
	n := len([]rune(term))
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

func (f Fuzziness) validate() error {
	if f.set && !f.auto && (f.edits < 0 || f.edits > MaxFuzzyEdits) {
		return invalid("fuzziness must be between 0 and %d or AUTO, got %d", MaxFuzzyEdits, f.edits)
	}
	return nil
}

func (f Fuzziness) render() any {
	if f.auto {
		return "AUTO"
	}
	return f.edits
}

// Operator combines the analyzed terms of a match clause.
type Operator string

// Match operators.
const (
	OperatorOr  Operator = "or"
	OperatorAnd Operator = "and"
)

// Match is a full-text match on one field.
type Match struct {
	Field     string
	Query     string
	Fuzziness Fuzziness
	Operator  Operator // empty means engine default (or)
}

// Kind implements Clause.
func (Match) Kind() Kind { return KindMatch }

// Validate implements Clause.
func (m Match) Validate() error {
	if m.Field == "" {
		return invalid("match: field is required")
	}
	if m.Query == "" {
		return invalid("match: query is required for field %q", m.Field)
	}
	if m.Operator != "" && m.Operator != OperatorOr && m.Operator != OperatorAnd {
		return invalid("match: invalid operator %q", m.Operator)
	}
	return m.Fuzziness.validate()
}

// Render implements Clause.
func (m Match) Render() map[string]any {
	body := map[string]any{"query": m.Query}
	if m.Fuzziness.IsSet() {
		body["fuzziness"] = m.Fuzziness.render()
	}
	if m.Operator != "" {
		body["operator"] = string(m.Operator)
	}
	return map[string]any{string(KindMatch): map[string]any{m.Field: body}}
}

// Fuzzy matches terms within an edit distance of Value without analysis.
type Fuzzy struct {
	Field     string
	Value     string
	Fuzziness Fuzziness // unset means AUTO
}

// Kind implements Clause.
func (Fuzzy) Kind() Kind { return KindFuzzy }

// Validate implements Clause.
func (f Fuzzy) Validate() error {
	if f.Field == "" {
		return invalid("fuzzy: field is required")
	}
	if f.Value == "" {
		return invalid("fuzzy: value is required for field %q", f.Field)
	}
	return f.Fuzziness.validate()
}

// Render implements Clause.
func (f Fuzzy) Render() map[string]any {
	fz := f.Fuzziness
	if !fz.IsSet() {
		fz = FuzzinessAuto()
	}
	return map[string]any{string(KindFuzzy): map[string]any{
		f.Field: map[string]any{"value": f.Value, "fuzziness": fz.render()},
	}}
}

// Range bounds a field. From/To style input maps to GTE/LTE (inclusive).
// Bounds are numbers or strings (dates, keywords); nil means unbounded.
type Range struct {
	Field string
	GT    any
	GTE   any
	LT    any
	LTE   any
}

// Between builds an inclusive range, the meaning of from/to.
func Between(field string, from, to any) Range {
	return Range{Field: field, GTE: from, LTE: to}
}

// Kind implements Clause.
func (Range) Kind() Kind { return KindRange }

// Validate implements Clause.
// At least one bound is required; gt/gte and lt/lte are mutually exclusive.
func (r Range) Validate() error {
	if r.Field == "" {
		return invalid("range: field is required")
	}
	if r.GT == nil && r.GTE == nil && r.LT == nil && r.LTE == nil {
		return invalid("range: at least one bound is required for field %q", r.Field)
	}
	if r.GT != nil && r.GTE != nil {
		return invalid("range: cannot specify both gt and gte for field %q", r.Field)
	}
	if r.LT != nil && r.LTE != nil {
		return invalid("range: cannot specify both lt and lte for field %q", r.Field)
	}
	for _, b := range []any{r.GT, r.GTE, r.LT, r.LTE} {
		if b == nil {
			continue
		}
		if _, ok := normalizeScalar(b); !ok {
			return invalid("range: bound %v (%T) on field %q is not a number or string", b, b, r.Field)
		}
	}
	return nil
}

// Render implements Clause.
func (r Range) Render() map[string]any {
	body := make(map[string]any, 2)
	set := func(key string, v any) {
		if v != nil {
			n, _ := normalizeScalar(v)
			body[key] = n
		}
	}
	set("gt", r.GT)
	set("gte", r.GTE)
	set("lt", r.LT)
	set("lte", r.LTE)
	return map[string]any{string(KindRange): map[string]any{r.Field: body}}
}

// Term matches an exact, unanalyzed value. Field "_id" matches document ids.
type Term struct {
	Field string
	Value any
}

// Kind implements Clause.
func (Term) Kind() Kind { return KindTerm }

// Validate implements Clause.
func (t Term) Validate() error {
	if t.Field == "" {
		return invalid("term: field is required")
	}
	if t.Value == nil {
		return invalid("term: value is required for field %q", t.Field)
	}
	if _, ok := normalizeScalar(t.Value); !ok {
		if _, isBool := t.Value.(bool); !isBool {
			return invalid("term: value %v (%T) on field %q is not a scalar", t.Value, t.Value, t.Field)
		}
	}
	return nil
}

// Render implements Clause.
func (t Term) Render() map[string]any {
	v := t.Value
	if n, ok := normalizeScalar(v); ok {
		v = n
	}
	return map[string]any{string(KindTerm): map[string]any{t.Field: map[string]any{"value": v}}}
}

// Bool combines clauses with boolean semantics.
type Bool struct {
	Must               []Clause
	Should             []Clause
	MustNot            []Clause
	Filter             []Clause
	MinimumShouldMatch *int
}

// Kind implements Clause.
func (Bool) Kind() Kind { return KindBool }

// Validate implements Clause.
func (b Bool) Validate() error {
	groups := []struct {
		name    string
		clauses []Clause
	}{
		{"must", b.Must}, {"should", b.Should}, {"must_not", b.MustNot}, {"filter", b.Filter},
	}
	total := 0
	for _, g := range groups {
		if len(g.clauses) > MaxClausesPerGroup {
			return invalid("bool: too many %s clauses (max %d)", g.name, MaxClausesPerGroup)
		}
		total += len(g.clauses)
		for _, c := range g.clauses {
			if c == nil {
				return invalid("bool: nil clause in %s", g.name)
			}
			if err := c.Validate(); err != nil {
				return err
			}
		}
	}
	if total == 0 {
		return invalid("bool: at least one clause is required")
	}
	if b.MinimumShouldMatch != nil {
		if *b.MinimumShouldMatch < 0 || *b.MinimumShouldMatch > len(b.Should) {
			return invalid("bool: minimum_should_match %d out of range [0, %d]", *b.MinimumShouldMatch, len(b.Should))
		}
	}
	return nil
}

// Render implements Clause.
func (b Bool) Render() map[string]any {
	body := make(map[string]any, 4)
	add := func(key string, clauses []Clause) {
		if len(clauses) == 0 {
			return
		}
		out := make([]any, len(clauses))
		for i, c := range clauses {
			out[i] = c.Render()
		}
		body[key] = out
	}
	add("must", b.Must)
	add("should", b.Should)
	add("must_not", b.MustNot)
	add("filter", b.Filter)
	if b.MinimumShouldMatch != nil {
		body["minimum_should_match"] = *b.MinimumShouldMatch
	}
	return map[string]any{string(KindBool): body}
}
