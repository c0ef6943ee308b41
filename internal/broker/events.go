package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"repricer-service/internal/models"
)

// EventPublisher handles publishing pricing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPriceChanged publishes a PriceChanged event
func (ep *EventPublisher) PublishPriceChanged(ctx context.Context, event *models.PriceChangedEvent) error {
	key := fmt.Sprintf("item-%s", event.ItemID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishRunCompleted publishes a ReconciliationCompleted event
func (ep *EventPublisher) PublishRunCompleted(ctx context.Context, event *models.ReconciliationCompletedEvent) error {
	key := fmt.Sprintf("run-%s", event.RunID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishRunRequested publishes a ReconciliationRequested command, used by
// external schedulers to trigger a run.
func (ep *EventPublisher) PublishRunRequested(ctx context.Context, event *models.ReconciliationRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, "run-request", event)
}

// EventHandler routes incoming pricing events
type EventHandler struct {
	onRunRequested func(context.Context, *models.ReconciliationRequestedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnRunRequested registers a handler for ReconciliationRequested events
func (eh *EventHandler) OnRunRequested(handler func(context.Context, *models.ReconciliationRequestedEvent) error) {
	eh.onRunRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeReconciliationRequest:
		if eh.onRunRequested != nil {
			var event models.ReconciliationRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReconciliationRequested event: %w", err)
			}
			return eh.onRunRequested(ctx, &event)
		}

	case models.EventTypePriceChanged, models.EventTypeReconciliationComplete:
		// Published by this service, consumed elsewhere.

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
