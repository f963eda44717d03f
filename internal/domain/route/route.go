// Package route holds the route cache domain: coordinate pairs, cache keys,
// cached routes and the ports to the cache store and the routing provider.
package route

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CachedRoute is a persisted routing result.
type CachedRoute struct {
	Key         Key
	Geometry    json.RawMessage // GeoJSON geometry object
	DistanceKm  float64
	DurationMin float64
	UpdatedAt   time.Time
}

// Result is a resolved route returned to callers.
type Result struct {
	Key         Key               `json:"key"`
	Geometry    *geojson.Geometry `json:"geometry"`
	DistanceKm  float64           `json:"distance_km"`
	DurationMin float64           `json:"duration_min"`
	Cached      bool              `json:"cached"`
}

// LineString returns the route path.
func (r *Result) LineString() orb.LineString {
	if r.Geometry == nil {
		return nil
	}
	ls, _ := r.Geometry.Geometry().(orb.LineString)
	return ls
}

// Feature wraps the geometry in a GeoJSON feature carrying distance and duration.
func (r *Result) Feature() *geojson.Feature {
	var g orb.Geometry
	if r.Geometry != nil {
		g = r.Geometry.Geometry()
	}
	f := geojson.NewFeature(g)
	f.Properties["distance_km"] = r.DistanceKm
	f.Properties["duration_min"] = r.DurationMin
	return f
}

// ToResult decodes the stored geometry.
func (c *CachedRoute) ToResult() (*Result, error) {
	geom, err := DecodeGeometry(c.Geometry)
	if err != nil {
		return nil, err
	}
	return &Result{
		Key:         c.Key,
		Geometry:    geom,
		DistanceKm:  c.DistanceKm,
		DurationMin: c.DurationMin,
		Cached:      true,
	}, nil
}

// DecodeGeometry parses a GeoJSON geometry and requires a line string.
func DecodeGeometry(raw json.RawMessage) (*geojson.Geometry, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty route geometry")
	}
	geom, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode route geometry: %w", err)
	}
	if _, ok := geom.Geometry().(orb.LineString); !ok {
		return nil, fmt.Errorf("route geometry is %s, want LineString", geom.Type)
	}
	return geom, nil
}

// MetersToKm converts meters to kilometers rounded to 2 decimals.
func MetersToKm(m float64) float64 { return roundTo(m/1000, 2) }

// SecondsToMinutes converts seconds to minutes rounded to 2 decimals.
func SecondsToMinutes(s float64) float64 { return roundTo(s/60, 2) }

// ValidateMeasures rejects negative or non-finite distance and duration.
func (r *ProviderRoute) ValidateMeasures() error {
	if !validMeasure(r.DistanceMeters) {
		return fmt.Errorf("invalid route distance %v", r.DistanceMeters)
	}
	if !validMeasure(r.DurationSeconds) {
		return fmt.Errorf("invalid route duration %v", r.DurationSeconds)
	}
	return nil
}

func validMeasure(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
