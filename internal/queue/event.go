// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// Lifecycle event types published to the order.lifecycle queue.
const (
	TypeOrderHeld     = "order.held"     // seats held, order created
	TypeOrderPaid     = "order.paid"     // payment confirmed (self-report or operator)
	TypeOrderReleased = "order.released" // cancelled or force-released
	TypeOrderExpired  = "order.expired"  // hold TTL elapsed without payment
)

// OrderEvent is published on every order lifecycle transition.  It
// carries enough information for downstream consumers to audit or
// notify without querying the engine.  Since cancelled and expired
// orders are purged from the active set, this stream is the durable
// audit trail for them.
type OrderEvent struct {
	ID          string   `json:"id"`           // unique event id for dedup by consumers
	Type        string   `json:"type"`         // one of the Type* constants
	OrderCode   string   `json:"order_code"`   // opaque order code
	RequesterID uint64   `json:"requester_id"` // customer who created the order
	EventID     uint64   `json:"event_id"`     // screening the seats belong to
	SeatIDs     []uint64 `json:"seat_ids"`     // seats affected by the transition
	AmountCents uint32   `json:"amount_cents"` // order total
	OccurredAt  string   `json:"occurred_at"`  // RFC3339 UTC timestamp
}

// NewOrderEvent builds an OrderEvent of the given type from an order,
// stamping a fresh UUID and the current UTC time.
func NewOrderEvent(typ string, o model.Order) OrderEvent {
	return OrderEvent{
		ID:          uuid.NewString(),
		Type:        typ,
		OrderCode:   o.Code,
		RequesterID: o.RequesterID,
		EventID:     o.EventID,
		SeatIDs:     append([]uint64(nil), o.SeatIDs...),
		AmountCents: o.AmountCents,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}
