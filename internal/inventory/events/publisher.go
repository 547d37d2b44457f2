package events

import (
	"context"

	"github.com/marketbay/marketbay-backend/pkg/logger"
	"github.com/marketbay/marketbay-backend/pkg/messaging"
)

// InventoryEventPublisher implements domain.EventPort over RabbitMQ.
// Emission is fire-and-forget: publish failures are logged, never returned,
// so event transport can never fail a stock mutation.
type InventoryEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// Emit publishes an event routed by type, suffixed with the audience (seller)
// ID when present so consumers can bind per-seller patterns
func (p *InventoryEventPublisher) Emit(ctx context.Context, eventType string, payload any, audienceID string) {
	if p == nil {
		return
	}

	routingKey := eventType
	if audienceID != "" {
		routingKey = eventType + "." + audienceID
	}

	if err := p.publisher.PublishRouted(ctx, eventType, routingKey, payload); err != nil {
		p.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("audience_id", audienceID).
			Msg("failed to publish inventory event")
	}
}
