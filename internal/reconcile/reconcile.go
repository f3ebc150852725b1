// Package reconcile exposes the operator-facing override operations.
// It is the authorization checkpoint in front of the reservation
// engine: every method takes the caller's privilege claim, supplied by
// the identity collaborator, and refuses to proceed when it is false.
// The engine itself enforces no authorization, so no caller may reach
// it around this boundary.
package reconcile

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bannnned/sea-cinema-booking/internal/engine"
	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// ErrUnauthorized is returned when a reconciliation operation is
// attempted without operator privilege.  The refusal is logged;
// handlers should translate this into an HTTP 403 response.
var ErrUnauthorized = errors.New("unauthorized")

// API wraps the reservation engine with privilege-checked operator
// overrides.
type API struct {
	engine *engine.Engine
}

// New returns a reconciliation API over the given engine.
func New(e *engine.Engine) *API {
	if e == nil {
		panic("nil engine passed to reconcile.New")
	}
	return &API{engine: e}
}

// PendingOrder is the operator review projection: a pending order
// joined with its event title and human-readable seat numbers.
type PendingOrder struct {
	Code        string    `json:"code"`
	RequesterID uint64    `json:"requester_id"`
	EventID     uint64    `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	StartsAt    time.Time `json:"starts_at"`
	SeatNumbers []uint32  `json:"seat_numbers"`
	AmountCents uint32    `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// ForceConfirm marks an order paid on the strength of an out-of-band
// verified payment, bypassing proof validation.
func (a *API) ForceConfirm(ctx context.Context, privileged bool, code string) (model.Order, error) {
	if !privileged {
		log.Printf("reconcile: unprivileged force-confirm attempt (order=%s)", code)
		return model.Order{}, ErrUnauthorized
	}
	return a.engine.ForceConfirm(ctx, code)
}

// ForceRelease frees an order's seats regardless of status, including
// PAID, and removes the order.  This is the only path allowed to
// downgrade a sold seat.
func (a *API) ForceRelease(ctx context.Context, privileged bool, code string) error {
	if !privileged {
		log.Printf("reconcile: unprivileged force-release attempt (order=%s)", code)
		return ErrUnauthorized
	}
	return a.engine.ForceRelease(ctx, code)
}

// ListPending returns pending orders newest first, joined with event
// titles and seat numbers for operator review.  A limit of 0 or less
// returns all pending orders.
func (a *API) ListPending(privileged bool, limit int) ([]PendingOrder, error) {
	if !privileged {
		log.Printf("reconcile: unprivileged list-pending attempt")
		return nil, ErrUnauthorized
	}
	pending := a.engine.PendingOrders(limit)
	out := make([]PendingOrder, 0, len(pending))
	for _, o := range pending {
		p := PendingOrder{
			Code:        o.Code,
			RequesterID: o.RequesterID,
			EventID:     o.EventID,
			AmountCents: o.AmountCents,
			CreatedAt:   o.CreatedAt,
		}
		if ev, err := a.engine.Event(o.EventID); err == nil {
			p.EventTitle = ev.Title
			p.StartsAt = ev.StartsAt
		}
		for _, sid := range o.SeatIDs {
			if s, err := a.engine.Seat(sid); err == nil {
				p.SeatNumbers = append(p.SeatNumbers, s.SeatNumber)
			}
		}
		out = append(out, p)
	}
	return out, nil
}
