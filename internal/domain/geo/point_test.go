package geo

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Point
	}{
		{"object", map[string]any{"lat": 59.91, "lon": 10.75}, Point{59.91, 10.75}},
		{"object int", map[string]any{"lat": 1, "lon": 2}, Point{1, 2}},
		{"array lon-lat", []any{10.75, 59.91}, Point{59.91, 10.75}},
		{"float slice", []float64{10.75, 59.91}, Point{59.91, 10.75}},
		{"string lat-lon", "59.91, 10.75", Point{59.91, 10.75}},
		{"value", Point{1, 2}, Point{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"out of range lat", map[string]any{"lat": 91.0, "lon": 0.0}},
		{"out of range lon", []any{181.0, 0.0}},
		{"missing lon", map[string]any{"lat": 1.0}},
		{"bad string", "north"},
		{"short array", []any{1.0}},
		{"number", 42},
		{"nil pointer", (*Point)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if !errors.Is(err, ErrInvalidPoint) {
				t.Errorf("Parse(%v) error = %v, want ErrInvalidPoint", tt.in, err)
			}
		})
	}
}

func TestPoint_Map(t *testing.T) {
	m := Point{Lat: 1.5, Lon: -2}.Map()
	if m["lat"] != 1.5 || m["lon"] != -2.0 {
		t.Errorf("Map() = %v", m)
	}
}
