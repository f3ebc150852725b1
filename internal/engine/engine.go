// Package engine orchestrates the full reservation lifecycle: hold
// creation, hold-to-paid confirmation, expiry and cancellation.  The
// engine is the only component permitted to mutate the seat inventory
// or the order store.  A single engine mutex serializes lifecycle
// operations so that each one is atomic across both maps; persistence
// writes and event publishing happen after the in-memory transition,
// outside the critical section.
package engine

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bannnned/sea-cinema-booking/internal/catalog"
	"github.com/bannnned/sea-cinema-booking/internal/inventory"
	"github.com/bannnned/sea-cinema-booking/internal/model"
	"github.com/bannnned/sea-cinema-booking/internal/order"
	"github.com/bannnned/sea-cinema-booking/internal/queue"
)

// maxProofLen bounds the accepted payment proof string.
const maxProofLen = 64

// Persistence is the durable-storage collaborator.  Both methods are
// called after a successful in-memory mutation with a full snapshot;
// a failed write is logged and healed by the next successful one,
// never rolled back in memory.
type Persistence interface {
	SaveSeats(ctx context.Context, seats []model.Seat) error
	SaveOrders(ctx context.Context, orders []model.Order) error
}

// Publisher is the message-broker collaborator.  Publishing is
// best-effort: errors are logged by the implementation and ignored
// here, so a broker outage never blocks the booking flow.
type Publisher interface {
	Publish(ctx context.Context, event queue.OrderEvent) error
}

// Engine wires the catalog, inventory and order store into the
// lifecycle state machine.  All mutating methods take the engine
// mutex; read methods go straight to the underlying components, whose
// own locks make reads linearizable with transitions.
type Engine struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	inv     *inventory.Inventory
	orders  *order.Store
	persist Persistence
	pub     Publisher
}

// New constructs an Engine.  persist and pub may be nil, in which case
// durability and event publishing are skipped (tests, dry runs).
func New(cat *catalog.Catalog, inv *inventory.Inventory, orders *order.Store, persist Persistence, pub Publisher) *Engine {
	if cat == nil || inv == nil || orders == nil {
		panic("nil component passed to engine.New")
	}
	return &Engine{
		catalog: cat,
		inv:     inv,
		orders:  orders,
		persist: persist,
		pub:     pub,
	}
}

// Finalize atomically converts a seat selection into a held order.
// All seats must be free and belong to the given event; on conflict it
// returns a *SeatUnavailableError listing exactly the seats that were
// not free, creates no order and mutates nothing; the caller must
// refresh its availability view before retrying.  The transition
// itself is the serialization point between concurrent requesters;
// correctness does not depend on any availability pre-check in the
// selection UI.
func (e *Engine) Finalize(ctx context.Context, requesterID, eventID uint64, seatIDs []uint64, unitPriceCents uint32) (model.Order, error) {
	if len(seatIDs) == 0 {
		return model.Order{}, ErrInvalidArgument
	}
	// Deduplicate while preserving selection order.
	unique := make([]uint64, 0, len(seatIDs))
	seen := make(map[uint64]struct{})
	for _, id := range seatIDs {
		if id == 0 {
			return model.Order{}, ErrInvalidArgument
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	if !e.catalog.Has(eventID) {
		return model.Order{}, catalog.ErrEventNotFound
	}
	// A seat from a different event is a usage error, not a conflict.
	for _, id := range unique {
		s, err := e.inv.Seat(id)
		if err != nil {
			return model.Order{}, err
		}
		if s.EventID != eventID {
			return model.Order{}, ErrInvalidArgument
		}
	}

	e.mu.Lock()
	ord := model.Order{
		RequesterID: requesterID,
		EventID:     eventID,
		SeatIDs:     unique,
		AmountCents: uint32(len(unique)) * unitPriceCents,
		PayStatus:   model.PayPending,
		CreatedAt:   time.Now().UTC(),
	}
	code, err := e.orders.Create(ord)
	if err != nil {
		e.mu.Unlock()
		return model.Order{}, err
	}
	if err := e.inv.TryTransition(unique, []model.SeatStatus{model.SeatFree}, model.SeatHeld, code); err != nil {
		_ = e.orders.Remove(code)
		e.mu.Unlock()
		if conflict, ok := err.(*inventory.ConflictError); ok {
			return model.Order{}, &SeatUnavailableError{ConflictingIDs: conflict.ConflictingIDs}
		}
		return model.Order{}, err
	}
	created, _ := e.orders.Get(code)
	seats, orders := e.inv.Snapshot(), e.orders.Snapshot()
	e.mu.Unlock()

	e.persistSnapshots(ctx, seats, orders)
	e.publish(ctx, queue.NewOrderEvent(queue.TypeOrderHeld, created))
	return created, nil
}

// ConfirmPayment records the requester's payment proof and advances
// the order and its seats to PAID.  Confirming an already-paid order
// is an idempotent no-op, tolerating duplicate confirmations.
func (e *Engine) ConfirmPayment(ctx context.Context, code, proof string) (model.Order, error) {
	proof = strings.TrimSpace(proof)
	if proof == "" || len(proof) > maxProofLen {
		return model.Order{}, ErrInvalidArgument
	}
	return e.confirm(ctx, code, proof)
}

// ForceConfirm marks the order paid without a payment proof.  It is
// the operator entry point for out-of-band verified payments; both
// confirmation paths converge on the same transition.
func (e *Engine) ForceConfirm(ctx context.Context, code string) (model.Order, error) {
	return e.confirm(ctx, code, "")
}

func (e *Engine) confirm(ctx context.Context, code, proof string) (model.Order, error) {
	e.mu.Lock()
	ord, err := e.orders.Get(code)
	if err != nil {
		e.mu.Unlock()
		return model.Order{}, err
	}
	if ord.PayStatus == model.PayPaid {
		// Duplicate confirmation: no state change, no error.
		e.mu.Unlock()
		return ord, nil
	}
	if err := e.inv.TryTransition(ord.SeatIDs, []model.SeatStatus{model.SeatHeld}, model.SeatPaid, code); err != nil {
		e.mu.Unlock()
		inv := &InvariantError{Op: "confirm", Detail: "pending order references seats not held by it", Err: err}
		log.Printf("engine: %v (order=%s)", inv, code)
		return model.Order{}, inv
	}
	_ = e.orders.Update(code, func(o *model.Order) {
		o.PayStatus = model.PayPaid
		if proof != "" {
			o.PaymentProof = proof
		}
	})
	ord, _ = e.orders.Get(code)
	seats, orders := e.inv.Snapshot(), e.orders.Snapshot()
	e.mu.Unlock()

	e.persistSnapshots(ctx, seats, orders)
	e.publish(ctx, queue.NewOrderEvent(queue.TypeOrderPaid, ord))
	return ord, nil
}

// Cancel releases a pending order's held seats back to FREE and
// removes the order from the active set.  It refuses to touch a paid
// order with ErrOrderPaid; downgrading sold seats is reserved for the
// operator's ForceRelease.
func (e *Engine) Cancel(ctx context.Context, code string) error {
	e.mu.Lock()
	ord, err := e.orders.Get(code)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if ord.PayStatus == model.PayPaid {
		e.mu.Unlock()
		return ErrOrderPaid
	}
	if err := e.release(ord, []model.SeatStatus{model.SeatHeld}, "cancel"); err != nil {
		e.mu.Unlock()
		return err
	}
	seats, orders := e.inv.Snapshot(), e.orders.Snapshot()
	e.mu.Unlock()

	e.persistSnapshots(ctx, seats, orders)
	e.publish(ctx, queue.NewOrderEvent(queue.TypeOrderReleased, ord))
	return nil
}

// ForceRelease returns an order's seats to FREE regardless of their
// current status, including PAID, and removes the order.  This is the
// one path that may un-sell a seat.  Callers must have passed
// the reconciliation privilege check.
func (e *Engine) ForceRelease(ctx context.Context, code string) error {
	e.mu.Lock()
	ord, err := e.orders.Get(code)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.release(ord, []model.SeatStatus{model.SeatHeld, model.SeatPaid}, "force-release"); err != nil {
		e.mu.Unlock()
		return err
	}
	seats, orders := e.inv.Snapshot(), e.orders.Snapshot()
	e.mu.Unlock()

	e.persistSnapshots(ctx, seats, orders)
	e.publish(ctx, queue.NewOrderEvent(queue.TypeOrderReleased, ord))
	return nil
}

// release frees the order's seats and removes the order.  Caller holds
// the engine lock.
func (e *Engine) release(ord model.Order, from []model.SeatStatus, op string) error {
	if err := e.inv.TryTransition(ord.SeatIDs, from, model.SeatFree, ""); err != nil {
		inv := &InvariantError{Op: op, Detail: "order references seats in an unexpected status", Err: err}
		log.Printf("engine: %v (order=%s)", inv, ord.Code)
		return inv
	}
	_ = e.orders.Remove(ord.Code)
	return nil
}

// ExpireStaleHolds releases every pending order created at or before
// now-ttl and returns the number of orders released.  It is invoked
// periodically by an external scheduler; the engine runs no timer of
// its own.  Re-running the sweep before new holds age past the TTL is
// a no-op, and sweeping never touches paid orders.
func (e *Engine) ExpireStaleHolds(ctx context.Context, now time.Time, ttl time.Duration) int {
	cutoff := now.Add(-ttl)
	e.mu.Lock()
	var expired []model.Order
	for _, ord := range e.orders.ListPending(0) {
		if ord.CreatedAt.After(cutoff) {
			continue
		}
		if err := e.release(ord, []model.SeatStatus{model.SeatHeld}, "expire"); err != nil {
			// Logged inside release; skip this order, keep sweeping.
			continue
		}
		expired = append(expired, ord)
	}
	var seats []model.Seat
	var orders []model.Order
	if len(expired) > 0 {
		seats, orders = e.inv.Snapshot(), e.orders.Snapshot()
	}
	e.mu.Unlock()

	if len(expired) > 0 {
		e.persistSnapshots(ctx, seats, orders)
		for _, ord := range expired {
			e.publish(ctx, queue.NewOrderEvent(queue.TypeOrderExpired, ord))
		}
	}
	return len(expired)
}

// Order returns the order with the given code.
func (e *Engine) Order(code string) (model.Order, error) { return e.orders.Get(code) }

// PendingOrders returns pending orders, newest first.
func (e *Engine) PendingOrders(limit int) []model.Order { return e.orders.ListPending(limit) }

// SeatsFor returns the live seat map for an event, ordered by seat number.
func (e *Engine) SeatsFor(eventID uint64) []model.Seat { return e.inv.SeatsFor(eventID) }

// Seat returns a single seat record.
func (e *Engine) Seat(id uint64) (model.Seat, error) { return e.inv.Seat(id) }

// Event returns a catalog entry.
func (e *Engine) Event(id uint64) (model.Event, error) { return e.catalog.Event(id) }

// Events returns the catalog ordered by start time.
func (e *Engine) Events() []model.Event { return e.catalog.Events() }

// persistSnapshots hands the given snapshots to the persistence
// collaborator.  The in-memory state is already committed; a failed
// write is a warning, not a rollback, and the next successful write
// replaces the whole snapshot anyway.
func (e *Engine) persistSnapshots(ctx context.Context, seats []model.Seat, orders []model.Order) {
	if e.persist == nil {
		return
	}
	if err := e.persist.SaveSeats(ctx, seats); err != nil {
		log.Printf("engine: persist seats failed (snapshot will heal on next write): %v", err)
	}
	if err := e.persist.SaveOrders(ctx, orders); err != nil {
		log.Printf("engine: persist orders failed (snapshot will heal on next write): %v", err)
	}
}

func (e *Engine) publish(ctx context.Context, ev queue.OrderEvent) {
	if e.pub == nil {
		return
	}
	_ = e.pub.Publish(ctx, ev) // errors are logged by the publisher
}
