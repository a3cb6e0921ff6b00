package mapping

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

func TestCast(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	str := "x"

	tests := []struct {
		name string
		ft   Type
		in   any
		want any
	}{
		{"text string", Text, "Bail", "Bail"},
		{"text int", Text, 42, "42"},
		{"text float", Text, 1.5, "1.5"},
		{"text bool", Text, true, "true"},
		{"keyword pointer", Keyword, &str, "x"},
		{"keyword slice", Keyword, []string{"a", "b"}, []any{"a", "b"}},
		{"number int", Number, 10000, int64(10000)},
		{"number uint8", Number, uint8(7), int64(7)},
		{"number float", Number, 2.5, 2.5},
		{"number json int", Number, json.Number("15000"), int64(15000)},
		{"number json float", Number, json.Number("1.25"), 1.25},
		{"number numeric string", Number, " 20000 ", int64(20000)},
		{"number float string", Number, "0.5", 0.5},
		{"date time", Date, when, "2024-03-01T11:30:00Z"},
		{"date rfc3339", Date, "2024-03-01T12:30:00+01:00", "2024-03-01T11:30:00Z"},
		{"date day", Date, "2024-03-01", "2024-03-01T00:00:00Z"},
		{"date epoch millis", Date, int64(0), "1970-01-01T00:00:00Z"},
		{"bool", Boolean, false, false},
		{"bool string", Boolean, "TRUE", true},
		{"geo object", GeoPoint, map[string]float64{"lat": 1, "lon": 2}, map[string]any{"lat": 1.0, "lon": 2.0}},
		{"geo pair", GeoPoint, []any{2.0, 1.0}, map[string]any{"lat": 1.0, "lon": 2.0}},
		{"geo string", GeoPoint, "1,2", map[string]any{"lat": 1.0, "lon": 2.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cast("f", tt.ft, tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Cast() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCast_Mismatch(t *testing.T) {
	tests := []struct {
		name string
		ft   Type
		in   any
	}{
		{"number from word", Number, "expensive"},
		{"number from bool", Number, true},
		{"number from map", Number, map[string]any{"a": 1}},
		{"text from map", Text, map[string]any{"a": 1}},
		{"date from word", Date, "yesterday"},
		{"date from fraction", Date, 1.5},
		{"bool from yes", Boolean, "yes"},
		{"bool from int", Boolean, 1},
		{"geo out of range", GeoPoint, "95,0"},
		{"slice with bad element", Number, []any{1, "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Cast("f", tt.ft, tt.in)
			if !errors.Is(err, domain.ErrMappingMismatch) {
				t.Errorf("Cast(%v) error = %v, want ErrMappingMismatch", tt.in, err)
			}
		})
	}
}

func TestCast_Absent(t *testing.T) {
	var p *string
	got, err := Cast("f", Text, p)
	if err != nil || got != nil {
		t.Errorf("Cast(nil pointer) = %v, %v", got, err)
	}
}
