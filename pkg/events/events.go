package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// Routing keys on the restaurant_events topic exchange. Every message for a
// given order is published with the order id as correlation id, so one queue
// sees the order's events in publish order.
const (
	Exchange = "restaurant_events"

	TopicOrderCreated       = "orders.created"
	TopicOrderSentToKitchen = "orders.sent-to-kitchen"
	TopicDishReady          = "kitchen.dish-ready"
	TopicBillGenerated      = "billing.generated"
	TopicBillPaid           = "billing.paid"
	TopicInventoryLowStock  = "inventory.low-stock"
	TopicFilesUploaded      = "files.uploaded"
)

const (
	TypeOrderCreated       = "ORDER_CREATED"
	TypeOrderSentToKitchen = "ORDER_SENT_TO_KITCHEN"
	TypeDishReady          = "DISH_READY"
	TypeBillGenerated      = "BILL_GENERATED"
	TypeBillPaid           = "BILL_PAID"
)

// Envelope is the wire format shared by every event on the bus. EventID is
// the de-duplication hint; OrderID is the partition key.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	OrderID    uuid.UUID       `json:"order_id"`
	Payload    json.RawMessage `json:"payload"`
}

// New wraps a payload into an Envelope with a fresh event id.
func New(eventType string, orderID uuid.UUID, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: failed to marshal %s payload: %w", eventType, err)
	}

	eventID, err := uuid.NewV4()
	if err != nil {
		return Envelope{}, fmt.Errorf("events: failed to generate event id: %w", err)
	}

	return Envelope{
		EventID:    eventID.String(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		OrderID:    orderID,
		Payload:    body,
	}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("events: failed to decode %s payload: %w", e.EventType, err)
	}
	return nil
}
