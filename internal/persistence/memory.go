package persistence

import (
	"context"
	"sync"

	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// Memory is an in-memory snapshot store.  It backs tests and
// deployments that run without a database; the engine cannot tell it
// apart from the MySQL store.
type Memory struct {
	mu     sync.Mutex
	seats  []model.Seat
	orders []model.Order
	events []model.Event

	// SaveErr, when set, is returned by every save call.  Tests use it
	// to exercise the persistence-failure path.
	SaveErr error
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory { return &Memory{} }

// SaveSeats replaces the stored seat snapshot.
func (m *Memory) SaveSeats(_ context.Context, seats []model.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.seats = append([]model.Seat(nil), seats...)
	return nil
}

// SaveOrders replaces the stored order snapshot.
func (m *Memory) SaveOrders(_ context.Context, orders []model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.orders = make([]model.Order, 0, len(orders))
	for _, o := range orders {
		c := o
		c.SeatIDs = append([]uint64(nil), o.SeatIDs...)
		m.orders = append(m.orders, c)
	}
	return nil
}

// SaveEvents replaces the stored event catalog.
func (m *Memory) SaveEvents(_ context.Context, events []model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.events = append([]model.Event(nil), events...)
	return nil
}

// LoadSeats returns the stored seat snapshot.
func (m *Memory) LoadSeats(_ context.Context) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Seat(nil), m.seats...), nil
}

// LoadOrders returns the stored order snapshot.
func (m *Memory) LoadOrders(_ context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		c := o
		c.SeatIDs = append([]uint64(nil), o.SeatIDs...)
		out = append(out, c)
	}
	return out, nil
}

// LoadEvents returns the stored event catalog.
func (m *Memory) LoadEvents(_ context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Event(nil), m.events...), nil
}
