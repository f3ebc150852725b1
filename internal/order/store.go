// Package order stores the active orders keyed by their opaque code.
// The store enforces no cross-order invariant; keeping seat sets of
// live orders disjoint is the reservation engine's job, since only the
// engine can see seat status.
package order

import (
	"errors"
	"sort"
	"sync"

	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// ErrOrderNotFound is returned when an order code does not exist in the
// active set.  Handlers should translate this into an HTTP 404 response.
var ErrOrderNotFound = errors.New("order not found")

// CodeGenerator produces a new opaque order code.  Generation is
// injected rather than embedded so tests can supply deterministic
// codes and the alphabet policy lives in one place.
type CodeGenerator func() (string, error)

// Store is the in-memory collection of active orders.  Cancelled and
// force-released orders are removed outright; the lifecycle event
// stream is the audit trail for them.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
	gen    CodeGenerator
}

// NewStore returns an empty Store using the given code generator.
func NewStore(gen CodeGenerator) *Store {
	if gen == nil {
		panic("nil code generator passed to NewStore")
	}
	return &Store{orders: make(map[string]*model.Order), gen: gen}
}

// Create assigns a fresh code to the order and inserts it.  The code is
// regenerated on the (vanishingly rare) collision with a live order.
// The stored order is a copy; the caller's value is not retained.
func (s *Store) Create(o model.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		code, err := s.gen()
		if err != nil {
			return "", err
		}
		if _, exists := s.orders[code]; exists {
			continue
		}
		o.Code = code
		stored := o
		stored.SeatIDs = append([]uint64(nil), o.SeatIDs...)
		s.orders[code] = &stored
		return code, nil
	}
}

// Get returns a copy of the order with the given code or ErrOrderNotFound.
func (s *Store) Get(code string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[code]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	return s.copyOf(o), nil
}

// Update applies the mutator to the stored order under the store lock.
// The mutator must not block; it receives the live record.
func (s *Store) Update(code string, mutate func(*model.Order)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[code]
	if !ok {
		return ErrOrderNotFound
	}
	mutate(o)
	return nil
}

// Remove deletes the order from the active set.
func (s *Store) Remove(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[code]; !ok {
		return ErrOrderNotFound
	}
	delete(s.orders, code)
	return nil
}

// ListPending returns copies of all orders still awaiting payment,
// newest first.  A limit of 0 or less returns every pending order.
func (s *Store) ListPending(limit int) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0)
	for _, o := range s.orders {
		if o.PayStatus == model.PayPending {
			out = append(out, s.copyOf(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code > out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Snapshot returns copies of every active order ordered by creation
// time, oldest first.  It is handed to the persistence collaborator.
func (s *Store) Snapshot() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, s.copyOf(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Restore replaces the store contents with the given orders.  Used at
// bootstrap when recovering persisted state.
func (s *Store) Restore(orders []model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[string]*model.Order, len(orders))
	for _, o := range orders {
		stored := o
		stored.SeatIDs = append([]uint64(nil), o.SeatIDs...)
		s.orders[o.Code] = &stored
	}
}

func (s *Store) copyOf(o *model.Order) model.Order {
	out := *o
	out.SeatIDs = append([]uint64(nil), o.SeatIDs...)
	return out
}
