package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPoint is returned for values that do not describe a coordinate.
var ErrInvalidPoint = errors.New("invalid geo point")

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks coordinate ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidPoint, p.Lat)
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidPoint, p.Lon)
	}
	return nil
}

// Map renders the point the way the engine stores geo_point fields.
func (p Point) Map() map[string]any {
	return map[string]any{"lat": p.Lat, "lon": p.Lon}
}

// Parse accepts the shapes the engine accepts for geo_point:
// {"lat","lon"} maps, [lon, lat] pairs, "lat,lon" strings and Point values.
func Parse(v any) (Point, error) {
	var p Point
	switch t := v.(type) {
	case Point:
		p = t
	case *Point:
		if t == nil {
			return Point{}, fmt.Errorf("%w: nil", ErrInvalidPoint)
		}
		p = *t
	case map[string]any:
		lat, okLat := toFloat(t["lat"])
		lon, okLon := toFloat(t["lon"])
		if !okLat || !okLon {
			return Point{}, fmt.Errorf("%w: object needs numeric lat and lon", ErrInvalidPoint)
		}
		p = Point{Lat: lat, Lon: lon}
	case []any:
		if len(t) != 2 {
			return Point{}, fmt.Errorf("%w: array needs [lon, lat]", ErrInvalidPoint)
		}
		lon, okLon := toFloat(t[0])
		lat, okLat := toFloat(t[1])
		if !okLat || !okLon {
			return Point{}, fmt.Errorf("%w: array needs numeric [lon, lat]", ErrInvalidPoint)
		}
		p = Point{Lat: lat, Lon: lon}
	case []float64:
		if len(t) != 2 {
			return Point{}, fmt.Errorf("%w: array needs [lon, lat]", ErrInvalidPoint)
		}
		p = Point{Lat: t[1], Lon: t[0]}
	case string:
		parts := strings.Split(t, ",")
		if len(parts) != 2 {
			return Point{}, fmt.Errorf("%w: string needs \"lat,lon\"", ErrInvalidPoint)
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLat != nil || errLon != nil {
			return Point{}, fmt.Errorf("%w: string needs numeric \"lat,lon\"", ErrInvalidPoint)
		}
		p = Point{Lat: lat, Lon: lon}
	default:
		return Point{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidPoint, v)
	}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
