package embedded

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/syncdex/internal/db"
	dsl "github.com/kailas-cloud/syncdex/internal/domain/search/query"
)

const idField = "_id"

// compiler turns a clause tree into a bleve query for one index mapping.
type compiler struct {
	def *db.IndexDefinition
}

func (c compiler) compile(cl dsl.Clause) (bq.Query, error) {
	switch t := cl.(type) {
	case dsl.MatchAll:
		return bleve.NewMatchAllQuery(), nil
	case dsl.Match:
		return c.match(t), nil
	case dsl.Fuzzy:
		return c.fuzzy(t), nil
	case dsl.Range:
		return c.rangeQuery(t)
	case dsl.Term:
		return c.term(t), nil
	case dsl.Bool:
		return c.boolean(t)
	default:
		return nil, fmt.Errorf("unsupported clause %T", cl)
	}
}

func (c compiler) typeOf(field string) (db.IndexFieldType, bool) {
	return fieldType(c.def, field)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func (c compiler) match(m dsl.Match) bq.Query {
	if t, ok := c.typeOf(m.Field); ok && t != db.IndexFieldText {
		// non-text fields are not analyzed: the whole query is one term
		return c.term(dsl.Term{Field: m.Field, Value: m.Query})
	}
	if !m.Fuzziness.IsSet() {
		q := bleve.NewMatchQuery(m.Query)
		q.SetField(m.Field)
		if m.Operator == dsl.OperatorAnd {
			q.Operator = bq.MatchQueryOperatorAnd
		}
		return q
	}

	tokens := tokenize(m.Query)
	if len(tokens) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	parts := make([]bq.Query, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, c.fuzzyTerm(m.Field, tok, m.Fuzziness.EditsFor(tok)))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	if m.Operator == dsl.OperatorAnd {
		return bleve.NewConjunctionQuery(parts...)
	}
	return bleve.NewDisjunctionQuery(parts...)
}

func (c compiler) fuzzy(f dsl.Fuzzy) bq.Query {
	fz := f.Fuzziness
	if !fz.IsSet() {
		fz = dsl.FuzzinessAuto()
	}
	value := f.Value
	if t, ok := c.typeOf(f.Field); !ok || t == db.IndexFieldText {
		value = strings.ToLower(value)
	}
	return c.fuzzyTerm(f.Field, value, fz.EditsFor(value))
}

func (c compiler) fuzzyTerm(field, term string, edits int) bq.Query {
	if edits == 0 {
		q := bleve.NewTermQuery(term)
		q.SetField(field)
		return q
	}
	q := bleve.NewFuzzyQuery(term)
	q.SetField(field)
	q.SetFuzziness(edits)
	return q
}

func (c compiler) rangeQuery(r dsl.Range) (bq.Query, error) {
	lo, loIncl := r.GTE, true
	if r.GT != nil {
		lo, loIncl = r.GT, false
	}
	hi, hiIncl := r.LTE, true
	if r.LT != nil {
		hi, hiIncl = r.LT, false
	}

	ft, mapped := c.typeOf(r.Field)
	if !mapped {
		ft = inferType(lo, hi)
	}

	switch ft {
	case db.IndexFieldDouble:
		var minP, maxP *float64
		if lo != nil {
			f, ok := toNumber(lo)
			if !ok {
				return nil, fmt.Errorf("range on %q: bound %v is not a number", r.Field, lo)
			}
			minP = &f
		}
		if hi != nil {
			f, ok := toNumber(hi)
			if !ok {
				return nil, fmt.Errorf("range on %q: bound %v is not a number", r.Field, hi)
			}
			maxP = &f
		}
		q := bleve.NewNumericRangeInclusiveQuery(minP, maxP, &loIncl, &hiIncl)
		q.SetField(r.Field)
		return q, nil
	case db.IndexFieldDate:
		var start, end time.Time
		if lo != nil {
			ts, ok := toTime(lo)
			if !ok {
				return nil, fmt.Errorf("range on %q: bound %v is not a date", r.Field, lo)
			}
			start = ts
		}
		if hi != nil {
			ts, ok := toTime(hi)
			if !ok {
				return nil, fmt.Errorf("range on %q: bound %v is not a date", r.Field, hi)
			}
			end = ts
		}
		q := bleve.NewDateRangeInclusiveQuery(start, end, &loIncl, &hiIncl)
		q.SetField(r.Field)
		return q, nil
	default:
		var minS, maxS string
		if lo != nil {
			minS = scalarText(lo)
		}
		if hi != nil {
			maxS = scalarText(hi)
		}
		q := bleve.NewTermRangeInclusiveQuery(minS, maxS, &loIncl, &hiIncl)
		q.SetField(r.Field)
		return q, nil
	}
}

// inferType guesses the field type of an unmapped range from its bounds.
func inferType(bounds ...any) db.IndexFieldType {
	for _, b := range bounds {
		switch b.(type) {
		case nil:
			continue
		case int64, float64:
			return db.IndexFieldDouble
		case string:
			if _, ok := toTime(b); ok {
				return db.IndexFieldDate
			}
			return db.IndexFieldKeyword
		}
	}
	return db.IndexFieldKeyword
}

func (c compiler) term(t dsl.Term) bq.Query {
	if t.Field == idField {
		return bleve.NewDocIDQuery([]string{scalarText(t.Value)})
	}

	ft, mapped := c.typeOf(t.Field)
	if !mapped {
		switch t.Value.(type) {
		case bool:
			ft = db.IndexFieldBoolean
		case int64, float64:
			ft = db.IndexFieldDouble
		default:
			ft = db.IndexFieldKeyword
		}
	}

	switch ft {
	case db.IndexFieldBoolean:
		b, ok := t.Value.(bool)
		if !ok {
			b = scalarText(t.Value) == "true"
		}
		q := bleve.NewBoolFieldQuery(b)
		q.SetField(t.Field)
		return q
	case db.IndexFieldDouble:
		f, ok := toNumber(t.Value)
		if !ok {
			return bleve.NewMatchNoneQuery()
		}
		incl := true
		q := bleve.NewNumericRangeInclusiveQuery(&f, &f, &incl, &incl)
		q.SetField(t.Field)
		return q
	case db.IndexFieldDate:
		ts, ok := toTime(t.Value)
		if !ok {
			return bleve.NewMatchNoneQuery()
		}
		incl := true
		q := bleve.NewDateRangeInclusiveQuery(ts, ts, &incl, &incl)
		q.SetField(t.Field)
		return q
	default:
		q := bleve.NewTermQuery(scalarText(t.Value))
		q.SetField(t.Field)
		return q
	}
}

func (c compiler) boolean(b dsl.Bool) (bq.Query, error) {
	compileAll := func(cls []dsl.Clause) ([]bq.Query, error) {
		out := make([]bq.Query, 0, len(cls))
		for _, cl := range cls {
			q, err := c.compile(cl)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		}
		return out, nil
	}

	must, err := compileAll(append(append([]dsl.Clause(nil), b.Must...), b.Filter...))
	if err != nil {
		return nil, err
	}
	should, err := compileAll(b.Should)
	if err != nil {
		return nil, err
	}
	mustNot, err := compileAll(b.MustNot)
	if err != nil {
		return nil, err
	}

	if len(must) == 0 && len(should) == 0 {
		must = append(must, bleve.NewMatchAllQuery())
	}
	q := bleve.NewBooleanQuery()
	if len(must) > 0 {
		q.AddMust(must...)
	}
	if len(should) > 0 {
		q.AddShould(should...)
		switch {
		case b.MinimumShouldMatch != nil:
			q.SetMinShould(float64(*b.MinimumShouldMatch))
		case len(b.Must) == 0 && len(b.Filter) == 0:
			q.SetMinShould(1)
		}
	}
	if len(mustNot) > 0 {
		q.AddMustNot(mustNot...)
	}
	return q, nil
}

func scalarText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(v)
	}
}
