// Package inventory is the single source of truth for seat occupancy.
// All status changes go through TryTransition, which applies a batch
// all-or-nothing: a transition either moves every requested seat or
// moves none of them.  Partial holds cannot occur by construction.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// ErrSeatNotFound is returned when a seat ID does not exist in the
// inventory.  Handlers should translate this into an HTTP 404 response.
var ErrSeatNotFound = errors.New("seat not found")

// ConflictError reports the seats that prevented a batch transition.
// The inventory is untouched when this error is returned.
type ConflictError struct {
	ConflictingIDs []uint64 // seats missing or not in an allowed source status
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("seat transition conflict on %d seat(s): %v", len(e.ConflictingIDs), e.ConflictingIDs)
}

// Inventory holds every seat record, indexed by ID and grouped by
// event.  A single RWMutex guards the whole map; inventories are small
// (one hall per event) so finer-grained locking buys nothing here.
type Inventory struct {
	mu      sync.RWMutex
	seats   map[uint64]*model.Seat
	byEvent map[uint64][]uint64 // seat IDs per event, ordered by seat number
}

// New builds an Inventory from the given seat records.  Seats are
// copied; the caller's slice is not retained.  Seat IDs must be unique
// across the whole inventory.
func New(seats []model.Seat) *Inventory {
	inv := &Inventory{
		seats:   make(map[uint64]*model.Seat, len(seats)),
		byEvent: make(map[uint64][]uint64),
	}
	for i := range seats {
		s := seats[i]
		inv.seats[s.ID] = &s
		inv.byEvent[s.EventID] = append(inv.byEvent[s.EventID], s.ID)
	}
	// Order each event's seats by seat number for stable listings.
	for evID, ids := range inv.byEvent {
		sort.Slice(ids, func(i, j int) bool {
			return inv.seats[ids[i]].SeatNumber < inv.seats[ids[j]].SeatNumber
		})
		inv.byEvent[evID] = ids
	}
	return inv
}

// SeatsFor returns copies of all seats for the given event, ordered by
// seat number.  An unknown event yields an empty slice.
func (inv *Inventory) SeatsFor(eventID uint64) []model.Seat {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	ids := inv.byEvent[eventID]
	out := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		out = append(out, *inv.seats[id])
	}
	return out
}

// Seat returns a copy of the seat with the given ID or ErrSeatNotFound.
func (inv *Inventory) Seat(id uint64) (model.Seat, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	s, ok := inv.seats[id]
	if !ok {
		return model.Seat{}, ErrSeatNotFound
	}
	return *s, nil
}

// TryTransition atomically moves every seat in ids from one of the
// allowed source statuses to the target status.  When the target is
// HELD or PAID the seats' HeldByOrder is set to owner; when the target
// is FREE it is cleared.  If any seat is missing, is not in an allowed
// source status, or (when holding) belongs to a different event than
// the first valid seat, the call fails with a *ConflictError listing the
// offending IDs and no seat is mutated.
func (inv *Inventory) TryTransition(ids []uint64, from []model.SeatStatus, to model.SeatStatus, owner string) error {
	allowed := make(map[model.SeatStatus]bool, len(from))
	for _, st := range from {
		allowed[st] = true
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	// Validation pass: collect every conflicting seat before touching any.
	// The event anchor is the first seat that passes the status check, so
	// a conflict at the head of the batch cannot taint the seats after it.
	var conflicts []uint64
	var eventID uint64
	anchored := false
	for _, id := range ids {
		s, ok := inv.seats[id]
		if !ok || !allowed[s.Status] {
			conflicts = append(conflicts, id)
			continue
		}
		if to == model.SeatHeld {
			if !anchored {
				eventID = s.EventID
				anchored = true
			} else if s.EventID != eventID {
				conflicts = append(conflicts, id)
			}
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{ConflictingIDs: conflicts}
	}
	// Mutation pass: every seat validated, apply the batch.
	for _, id := range ids {
		s := inv.seats[id]
		s.Status = to
		if to == model.SeatFree {
			s.HeldByOrder = ""
		} else {
			s.HeldByOrder = owner
		}
	}
	return nil
}

// Snapshot returns a copy of every seat record, ordered by seat ID.
// It is handed to the persistence collaborator after mutations.
func (inv *Inventory) Snapshot() []model.Seat {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make([]model.Seat, 0, len(inv.seats))
	for _, s := range inv.seats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
