package route

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
)

// Pair is an ordered origin/destination coordinate pair in WGS84 degrees.
type Pair struct {
	OriginLon float64 `json:"origin_lon"`
	OriginLat float64 `json:"origin_lat"`
	DestLon   float64 `json:"dest_lon"`
	DestLat   float64 `json:"dest_lat"`
}

// NewPair builds a Pair from origin and destination points.
func NewPair(origin, dest orb.Point) Pair {
	return Pair{
		OriginLon: origin.Lon(),
		OriginLat: origin.Lat(),
		DestLon:   dest.Lon(),
		DestLat:   dest.Lat(),
	}
}

// Origin returns the origin as a point.
func (p Pair) Origin() orb.Point { return orb.Point{p.OriginLon, p.OriginLat} }

// Destination returns the destination as a point.
func (p Pair) Destination() orb.Point { return orb.Point{p.DestLon, p.DestLat} }

// Validate rejects non-finite or out-of-range coordinates.
// DeriveKey and the resolver assume a validated pair.
func (p Pair) Validate() error {
	checks := []struct {
		name  string
		value float64
		limit float64
	}{
		{"origin longitude", p.OriginLon, 180},
		{"origin latitude", p.OriginLat, 90},
		{"destination longitude", p.DestLon, 180},
		{"destination latitude", p.DestLat, 90},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return apperr.NewValidationErrorCode("missing_coordinates", fmt.Sprintf("%s is missing", c.name))
		}
		if math.Abs(c.value) > c.limit {
			return apperr.NewValidationError(fmt.Sprintf("%s out of range: %v", c.name, c.value))
		}
	}
	return nil
}
