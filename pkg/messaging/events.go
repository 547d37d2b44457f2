package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Stock events
	EventStockUpdated = "inventory.stock.updated"

	// Reservation events
	EventReservationCreated   = "inventory.reservation.created"
	EventReservationConfirmed = "inventory.reservation.confirmed"
	EventReservationCancelled = "inventory.reservation.cancelled"
	EventReservationExpired   = "inventory.reservation.expired"

	// Alert events
	EventAlertGenerated = "inventory.alert.generated"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}

// StockUpdatedEvent is published whenever ledger stock changes
type StockUpdatedEvent struct {
	ProductID string `json:"product_id"`
	SellerID  string `json:"seller_id,omitempty"`
	NewStock  int    `json:"new_stock"`
	Operation string `json:"operation"`
	Reason    string `json:"reason,omitempty"`
}

// ReservationEvent is published on reservation lifecycle transitions
type ReservationEvent struct {
	ReservationID string `json:"reservation_id"`
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	Status        string `json:"status"`
	OrderID       string `json:"order_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
}

// AlertGeneratedEvent is published when an inventory alert is raised
type AlertGeneratedEvent struct {
	ProductID    string `json:"product_id"`
	SellerID     string `json:"seller_id,omitempty"`
	AlertType    string `json:"alert_type"`
	Severity     string `json:"severity"`
	CurrentStock int    `json:"current_stock"`
	Message      string `json:"message"`
}
