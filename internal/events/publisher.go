package events

import (
	"context"
	"time"

	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
	"github.com/moplan-logistics/service-routing/internal/platform/kafka"
	"go.uber.org/zap"
)

// Publisher emits routing events. Publishing is best effort: failures are
// logged and never fail the calling operation. A nil *Publisher is valid
// and publishes nothing.
type Publisher struct {
	producer kafka.EventPublisher
	logger   *zap.Logger
}

// NewPublisher creates a Publisher on top of producer.
func NewPublisher(producer kafka.EventPublisher, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// RouteCached publishes a RouteCachedEvent for record.
func (p *Publisher) RouteCached(ctx context.Context, pair routeDomain.Pair, record *routeDomain.CachedRoute) {
	evt := RouteCachedEvent{
		RouteKey:    record.Key.String(),
		OriginLon:   pair.OriginLon,
		OriginLat:   pair.OriginLat,
		DestLon:     pair.DestLon,
		DestLat:     pair.DestLat,
		DistanceKm:  record.DistanceKm,
		DurationMin: record.DurationMin,
		OccurredAt:  time.Now().UTC(),
	}
	p.publish(ctx, TopicRoutingEvents, RouteCached, record.Key.String(), evt)
}

// PlanningSynced publishes a PlanningSyncedEvent.
func (p *Publisher) PlanningSynced(ctx context.Context, evt PlanningSyncedEvent) {
	p.publish(ctx, TopicRoutingEvents, PlanningSynced, "planning", evt)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, subject string, data interface{}) {
	if p == nil || p.producer == nil {
		return
	}

	cloudEvent, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = subject

	if err := p.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
