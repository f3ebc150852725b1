package persistence

import (
	"context"

	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// Store is the full collaborator surface: the snapshot sinks the
// engine writes after each successful mutation, plus the loads used at
// bootstrap to rebuild the exact state a previous run persisted.
type Store interface {
	SaveSeats(ctx context.Context, seats []model.Seat) error
	SaveOrders(ctx context.Context, orders []model.Order) error
	SaveEvents(ctx context.Context, events []model.Event) error
	LoadSeats(ctx context.Context) ([]model.Seat, error)
	LoadOrders(ctx context.Context) ([]model.Order, error)
	LoadEvents(ctx context.Context) ([]model.Event, error)
}

var (
	_ Store = (*MySQL)(nil)
	_ Store = (*Memory)(nil)
)
