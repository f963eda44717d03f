// Package planning models the shipment planning data imported from the
// upstream planning API: loading bays (origins), plants (destinations) and
// the orders that link them.
package planning

import (
	"encoding/json"
	"math"

	"github.com/moplan-logistics/service-routing/internal/domain/route"
	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
)

// Origin is a loading bay ("cargadero").
type Origin struct {
	Code string
	Name string
	Lat  *float64
	Lon  *float64
	Raw  json.RawMessage
}

// Destination is a delivery plant ("planta").
type Destination struct {
	PlantCode string
	Name      string
	Lat       *float64
	Lon       *float64
	Raw       json.RawMessage
}

// Plan is a planned shipment ("planificación") for an order.
type Plan struct {
	Order          string
	PlantCode      string
	LoadingBayCode string
	Raw            json.RawMessage
}

// OrderRoute is an order joined with its origin and destination coordinates.
// Coordinates are nil when the master data has no match or no value.
type OrderRoute struct {
	Order          string
	PlantCode      string
	LoadingBayCode string
	OriginLon      *float64
	OriginLat      *float64
	DestLon        *float64
	DestLat        *float64
}

// Pair returns the route pair for the order, or a missing_coordinates
// validation error when any coordinate is absent.
func (o *OrderRoute) Pair() (route.Pair, error) {
	coords := []*float64{o.OriginLon, o.OriginLat, o.DestLon, o.DestLat}
	for _, c := range coords {
		if c == nil || math.IsNaN(*c) {
			return route.Pair{}, apperr.NewValidationErrorCode(
				"missing_coordinates",
				"origin or destination coordinates are missing for order "+o.Order,
			)
		}
	}
	p := route.Pair{
		OriginLon: *o.OriginLon,
		OriginLat: *o.OriginLat,
		DestLon:   *o.DestLon,
		DestLat:   *o.DestLat,
	}
	if err := p.Validate(); err != nil {
		return route.Pair{}, err
	}
	return p, nil
}
