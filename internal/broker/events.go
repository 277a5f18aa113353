package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"litewms/internal/models"
	"litewms/internal/util"

	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes ledger events to the stock audit stream
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishStockCommitted publishes a StockCommitted event
func (ep *EventPublisher) PublishStockCommitted(ctx context.Context, event *models.StockCommittedEvent) error {
	key := fmt.Sprintf("warehouse-%d", event.WarehouseID)
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(event.EventType).Inc()
	return nil
}

// PublishStockReverted publishes a StockReverted event
func (ep *EventPublisher) PublishStockReverted(ctx context.Context, event *models.StockRevertedEvent) error {
	key := fmt.Sprintf("warehouse-%d", event.WarehouseID)
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(event.EventType).Inc()
	return nil
}

// EventHandler routes stock events to registered callbacks
type EventHandler struct {
	onStockCommitted func(context.Context, *models.StockCommittedEvent) error
	onStockReverted  func(context.Context, *models.StockRevertedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnStockCommitted registers a handler for StockCommitted events
func (eh *EventHandler) OnStockCommitted(handler func(context.Context, *models.StockCommittedEvent) error) {
	eh.onStockCommitted = handler
}

// OnStockReverted registers a handler for StockReverted events
func (eh *EventHandler) OnStockReverted(handler func(context.Context, *models.StockRevertedEvent) error) {
	eh.onStockReverted = handler
}

// HandleMessage routes messages to the appropriate handler
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeStockCommitted:
		if eh.onStockCommitted != nil {
			var event models.StockCommittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockCommitted event: %w", err)
			}
			return eh.onStockCommitted(ctx, &event)
		}

	case models.EventTypeStockReverted:
		if eh.onStockReverted != nil {
			var event models.StockRevertedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockReverted event: %w", err)
			}
			return eh.onStockReverted(ctx, &event)
		}
	}

	return nil
}
