package model

// SeatStatus enumerates the availability states a seat moves
// through.  Transitions are FREE -> HELD -> PAID, with HELD -> FREE
// on release/expiry and PAID -> FREE reserved for operator override.
type SeatStatus string

const (
	SeatFree SeatStatus = "FREE" // available for selection
	SeatHeld SeatStatus = "HELD" // provisionally claimed by a pending order
	SeatPaid SeatStatus = "PAID" // sold; only an operator may release it
)

// Seat describes a single numbered seat belonging to exactly one
// event for its whole lifetime.  Seats are created at inventory
// bootstrap and never deleted; only their Status and HeldByOrder
// fields change, and only through the reservation engine.
//
// Fields:
//  ID          - unique across the whole inventory.
//  EventID     - event this seat belongs to.
//  SeatNumber  - 1..N position within the event.
//  Status      - availability status (FREE, HELD, PAID).
//  HeldByOrder - code of the order holding or owning the seat;
//                empty exactly when the seat is FREE.
type Seat struct {
	ID          uint64     // seats.id
	EventID     uint64     // seats.event_id
	SeatNumber  uint32     // seats.seat_number
	Status      SeatStatus // seats.status
	HeldByOrder string     // seats.held_by_order (empty when FREE)
}
