package events

import (
	"context"
	"encoding/json"

	"github.com/moplan-logistics/service-routing/internal/platform/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// PlanningSyncer runs a planning import.
type PlanningSyncer interface {
	RunSync(ctx context.Context, trigger string) error
}

// PlanningCommandConsumer listens to planning commands and triggers imports.
type PlanningCommandConsumer struct {
	consumer *kafka.Consumer
	syncer   PlanningSyncer
	logger   *zap.Logger
}

// NewPlanningCommandConsumer creates a new PlanningCommandConsumer.
func NewPlanningCommandConsumer(
	brokers []string,
	groupID string,
	syncer PlanningSyncer,
	logger *zap.Logger,
) *PlanningCommandConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicPlanningCommands, logger)
	return &PlanningCommandConsumer{
		consumer: consumer,
		syncer:   syncer,
		logger:   logger,
	}
}

// Start begins consuming planning commands. This blocks until the context is cancelled.
func (c *PlanningCommandConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PlanningCommandConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PlanningCommandConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from planning topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case PlanningSyncRequested:
		return c.handleSyncRequested(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled planning event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PlanningCommandConsumer) handleSyncRequested(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt PlanningSyncRequestedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PlanningSyncRequestedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing planning sync request",
		zap.String("requested_by", evt.RequestedBy),
		zap.String("event_id", cloudEvent.ID),
	)

	if err := c.syncer.RunSync(ctx, "kafka:"+evt.RequestedBy); err != nil {
		c.logger.Error("planning sync failed",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("planning sync completed after request",
		zap.String("event_id", cloudEvent.ID),
	)
	return nil
}
