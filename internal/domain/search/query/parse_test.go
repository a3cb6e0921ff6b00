package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

func TestParseJSON_Leaves(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Clause
	}{
		{"match_all", `{"match_all": {}}`, MatchAll{}},
		{"match shorthand", `{"match": {"name": "legal"}}`, Match{Field: "name", Query: "legal"}},
		{
			"match fuzzy",
			`{"match": {"name": {"query": "comersial", "fuzziness": 2}}}`,
			Match{Field: "name", Query: "comersial", Fuzziness: Edits(2)},
		},
		{
			"match auto and",
			`{"match": {"name": {"query": "a b", "fuzziness": "AUTO", "operator": "AND"}}}`,
			Match{Field: "name", Query: "a b", Fuzziness: FuzzinessAuto(), Operator: OperatorAnd},
		},
		{"fuzzy shorthand", `{"fuzzy": {"name": "legl"}}`, Fuzzy{Field: "name", Value: "legl"}},
		{
			"fuzzy full",
			`{"fuzzy": {"name": {"value": "legl", "fuzziness": "1"}}}`,
			Fuzzy{Field: "name", Value: "legl", Fuzziness: Edits(1)},
		},
		{
			"range from to",
			`{"range": {"price": {"from": 20000, "to": 30000}}}`,
			Range{Field: "price", GTE: int64(20000), LTE: int64(30000)},
		},
		{
			"range exclusive",
			`{"range": {"price": {"gt": 1.5, "lt": 10}}}`,
			Range{Field: "price", GT: 1.5, LT: int64(10)},
		},
		{"term shorthand", `{"term": {"type": "B"}}`, Term{Field: "type", Value: "B"}},
		{"term value", `{"term": {"_id": {"value": "b-1"}}}`, Term{Field: "_id", Value: "b-1"}},
		{"term bool", `{"term": {"active": true}}`, Term{Field: "active", Value: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON([]byte(tt.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseJSON() = %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestParseJSON_Bool(t *testing.T) {
	got, err := ParseJSON([]byte(`{"bool": {
		"must": {"match": {"name": "bond"}},
		"should": [{"term": {"type": "A"}}, {"term": {"type": "B"}}],
		"must_not": [{"range": {"price": {"lt": 100}}}],
		"filter": [{"match_all": {}}],
		"minimum_should_match": 1
	}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := got.(Bool)
	if !ok {
		t.Fatalf("got %T, want Bool", got)
	}
	if len(b.Must) != 1 || len(b.Should) != 2 || len(b.MustNot) != 1 || len(b.Filter) != 1 {
		t.Errorf("groups = %d/%d/%d/%d", len(b.Must), len(b.Should), len(b.MustNot), len(b.Filter))
	}
	if b.MinimumShouldMatch == nil || *b.MinimumShouldMatch != 1 {
		t.Errorf("minimum_should_match = %v", b.MinimumShouldMatch)
	}
	if b.Should[1].(Term).Value != "B" {
		t.Errorf("should order not preserved: %#v", b.Should)
	}
}

func TestParseClause_Unsupported(t *testing.T) {
	_, err := ParseClause(map[string]any{"geo_distance": map[string]any{}})
	if !errors.Is(err, domain.ErrUnsupportedClause) {
		t.Fatalf("error = %v, want ErrUnsupportedClause", err)
	}
	var uc *domain.UnsupportedClauseError
	if !errors.As(err, &uc) || uc.Kind != "geo_distance" {
		t.Errorf("error = %#v, want kind geo_distance", err)
	}
}

func TestParseClause_NestedUnsupported(t *testing.T) {
	_, err := ParseJSON([]byte(`{"bool": {"must": [{"wildcard": {"name": "b*"}}]}}`))
	if !errors.Is(err, domain.ErrUnsupportedClause) {
		t.Fatalf("error = %v, want ErrUnsupportedClause", err)
	}
}

func TestParseClause_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not object", `[1]`},
		{"two kinds", `{"match_all": {}, "term": {"a": 1}}`},
		{"match two fields", `{"match": {"a": "x", "b": "y"}}`},
		{"match no query", `{"match": {"a": {"fuzziness": 1}}}`},
		{"match bad fuzziness", `{"match": {"a": {"query": "x", "fuzziness": 3}}}`},
		{"match bad fuzziness word", `{"match": {"a": {"query": "x", "fuzziness": "lots"}}}`},
		{"match bad operator", `{"match": {"a": {"query": "x", "operator": "xor"}}}`},
		{"range empty", `{"range": {"price": {}}}`},
		{"range gt and gte", `{"range": {"price": {"gt": 1, "from": 2}}}`},
		{"range unknown key", `{"range": {"price": {"above": 1}}}`},
		{"range object bound", `{"range": {"price": {"gte": {"x": 1}}}}`},
		{"term null", `{"term": {"type": null}}`},
		{"term array", `{"term": {"type": ["a"]}}`},
		{"bool empty", `{"bool": {}}`},
		{"bool bad group", `{"bool": {"must": "x"}}`},
		{"bool msm too high", `{"bool": {"should": [{"match_all": {}}], "minimum_should_match": 2}}`},
		{"bool unknown key", `{"bool": {"must": [{"match_all": {}}], "nope": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.in))
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("ParseJSON(%s) error = %v, want ErrValidation", tt.in, err)
			}
		})
	}
}

func TestFuzziness_EditsFor(t *testing.T) {
	auto := FuzzinessAuto()
	tests := []struct {
		term string
		want int
	}{
		{"ab", 0},
		{"abc", 1},
		{"abcde", 1},
		{"comersial", 2},
	}
	for _, tt := range tests {
		if got := auto.EditsFor(tt.term); got != tt.want {
			t.Errorf("AUTO.EditsFor(%q) = %d, want %d", tt.term, got, tt.want)
		}
	}
	if got := Edits(1).EditsFor("comersial"); got != 1 {
		t.Errorf("Edits(1).EditsFor() = %d", got)
	}
}
