package model

import "time"

// PayStatus enumerates the payment states of an order.  Cancelled
// orders are removed from the active set rather than kept in a
// terminal state.
type PayStatus string

const (
	PayPending PayStatus = "PENDING" // awaiting payment proof
	PayPaid    PayStatus = "PAID"    // payment confirmed
)

// Order groups one or more held seats under a single opaque code.
// All seats in SeatIDs belong to EventID and carry a status matching
// PayStatus (HELD while PENDING, PAID once paid).  An active order's
// seat set is disjoint from every other active order's.
//
// Fields:
//  Code         - opaque, unguessable fixed-length identifier.
//  RequesterID  - customer who created the order.
//  EventID      - event the seats belong to.
//  SeatIDs      - non-empty set of seat IDs, in selection order.
//  AmountCents  - total price: len(SeatIDs) * unit price.
//  PayStatus    - PENDING or PAID.
//  PaymentProof - proof string supplied on confirmation, if any.
//  CreatedAt    - creation timestamp (UTC); drives hold expiry.
type Order struct {
	Code         string    // orders.code
	RequesterID  uint64    // orders.requester_id
	EventID      uint64    // orders.event_id
	SeatIDs      []uint64  // order_seats.seat_id rows
	AmountCents  uint32    // orders.amount_cents
	PayStatus    PayStatus // orders.pay_status
	PaymentProof string    // orders.payment_proof (empty when unset)
	CreatedAt    time.Time // orders.created_at
}
