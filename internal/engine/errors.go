// Package engine defines the error taxonomy shared by the reservation
// lifecycle operations.  These sentinel and typed values allow higher
// layers such as handlers to distinguish between different failure
// scenarios.  For example, ErrInvalidArgument marks a caller mistake
// that touched no state, while an InvariantError signals an engine bug
// that must be escalated rather than retried.
package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a request is malformed (empty
// seat selection, seat/event mismatch, bad payment proof).  No state
// is mutated.  Handlers should translate this into an HTTP 400.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrOrderPaid is returned when a plain cancel targets an already-paid
// order.  Un-selling paid seats is reserved for the operator's force
// release.  Handlers should translate this into an HTTP 409.
var ErrOrderPaid = errors.New("order already paid")

// SeatUnavailableError is returned from Finalize when one or more
// requested seats are no longer free.  The caller's view of
// availability is stale and must be refreshed before retrying.
type SeatUnavailableError struct {
	ConflictingIDs []uint64 // exactly the seats that were not free
}

// Error implements the error interface.
func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.ConflictingIDs)
}

// InvariantError reports seat/order state found inconsistent during an
// operation that is expected to always succeed.  It implies a prior
// engine bug: the operation aborts with no partial mutation and the
// condition is logged for operator attention.
type InvariantError struct {
	Op     string // operation that detected the inconsistency
	Detail string // what was found
	Err    error  // underlying error, if any
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invariant violation in %s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Detail)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *InvariantError) Unwrap() error { return e.Err }
