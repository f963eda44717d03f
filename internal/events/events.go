// Package events defines the routing service's Kafka events and the
// publisher and consumer that move them.
package events

import "time"

const (
	// Source is the CloudEvents source of every event emitted here.
	Source = "service-routing"

	TopicRoutingEvents    = "routing.events"
	TopicPlanningCommands = "planning.commands"

	RouteCached           = "routing.route.cached"
	PlanningSynced        = "routing.planning.synced"
	PlanningSyncRequested = "planning.sync.requested"
)

// RouteCachedEvent is emitted when a provider route is stored in the cache.
type RouteCachedEvent struct {
	RouteKey    string    `json:"route_key"`
	OriginLon   float64   `json:"origin_lon"`
	OriginLat   float64   `json:"origin_lat"`
	DestLon     float64   `json:"dest_lon"`
	DestLat     float64   `json:"dest_lat"`
	DistanceKm  float64   `json:"distance_km"`
	DurationMin float64   `json:"duration_min"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PlanningSyncedEvent is emitted after a planning import.
type PlanningSyncedEvent struct {
	Origins      int       `json:"origins"`
	Destinations int       `json:"destinations"`
	Plans        int       `json:"plans"`
	Trigger      string    `json:"trigger"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// PlanningSyncRequestedEvent asks the service to import planning data.
type PlanningSyncRequestedEvent struct {
	RequestedBy string    `json:"requested_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}
