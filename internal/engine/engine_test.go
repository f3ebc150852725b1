package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bannnned/sea-cinema-booking/internal/catalog"
	"github.com/bannnned/sea-cinema-booking/internal/inventory"
	"github.com/bannnned/sea-cinema-booking/internal/model"
	"github.com/bannnned/sea-cinema-booking/internal/order"
	"github.com/bannnned/sea-cinema-booking/internal/persistence"
	"github.com/bannnned/sea-cinema-booking/internal/queue"
)

// capturePub records published lifecycle events.
type capturePub struct {
	mu     sync.Mutex
	events []queue.OrderEvent
}

func (p *capturePub) Publish(_ context.Context, ev queue.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func seqGen() order.CodeGenerator {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("CODE%04d", n), nil
	}
}

// newTestEngine builds an engine over one 25-seat event with seat IDs
// 101..125, backed by an in-memory store and a capturing publisher.
func newTestEngine(t *testing.T) (*Engine, *persistence.Memory, *capturePub) {
	t.Helper()
	cat := catalog.New([]model.Event{
		{ID: 1, Title: "Evening Show", StartsAt: time.Date(2026, 9, 5, 19, 0, 0, 0, time.UTC)},
	})
	seats := make([]model.Seat, 0, 25)
	for n := 1; n <= 25; n++ {
		seats = append(seats, model.Seat{
			ID:         100 + uint64(n),
			EventID:    1,
			SeatNumber: uint32(n),
			Status:     model.SeatFree,
		})
	}
	mem := persistence.NewMemory()
	pub := &capturePub{}
	eng := New(cat, inventory.New(seats), order.NewStore(seqGen()), mem, pub)
	return eng, mem, pub
}

const unitPrice = 60000 // 600.00 per seat

func TestFinalizeHoldsSeatsAndCreatesOrder(t *testing.T) {
	eng, mem, pub := newTestEngine(t)
	ctx := context.Background()

	ord, err := eng.Finalize(ctx, 7, 1, []uint64{101, 102}, unitPrice)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if ord.Code == "" || ord.PayStatus != model.PayPending {
		t.Fatalf("order = %+v", ord)
	}
	if ord.AmountCents != 2*unitPrice {
		t.Errorf("AmountCents = %d, want %d", ord.AmountCents, 2*unitPrice)
	}
	for _, id := range []uint64{101, 102} {
		s, _ := eng.Seat(id)
		if s.Status != model.SeatHeld || s.HeldByOrder != ord.Code {
			t.Errorf("seat %d = %s held by %q, want HELD by %s", id, s.Status, s.HeldByOrder, ord.Code)
		}
	}

	// The snapshot store saw the committed state.
	seats, _ := mem.LoadSeats(ctx)
	held := 0
	for _, s := range seats {
		if s.Status == model.SeatHeld {
			held++
		}
	}
	if held != 2 {
		t.Errorf("persisted snapshot has %d held seats, want 2", held)
	}
	orders, _ := mem.LoadOrders(ctx)
	if len(orders) != 1 || orders[0].Code != ord.Code {
		t.Errorf("persisted orders = %+v", orders)
	}

	if got := pub.types(); len(got) != 1 || got[0] != queue.TypeOrderHeld {
		t.Errorf("published events = %v, want [%s]", got, queue.TypeOrderHeld)
	}
}

func TestFinalizeConflictReportsExactSeats(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := eng.Finalize(ctx, 7, 1, []uint64{101, 102}, unitPrice)
	if err != nil {
		t.Fatalf("first Finalize: %v", err)
	}

	_, err = eng.Finalize(ctx, 8, 1, []uint64{102, 103}, unitPrice)
	var unavailable *SeatUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("second Finalize error = %v, want *SeatUnavailableError", err)
	}
	if len(unavailable.ConflictingIDs) != 1 || unavailable.ConflictingIDs[0] != 102 {
		t.Errorf("ConflictingIDs = %v, want [102]", unavailable.ConflictingIDs)
	}

	// The free seat in the failed batch stays free, and no second
	// order exists.
	s, _ := eng.Seat(103)
	if s.Status != model.SeatFree {
		t.Errorf("seat 103 = %s after failed finalize, want FREE", s.Status)
	}
	if got := eng.PendingOrders(0); len(got) != 1 || got[0].Code != first.Code {
		t.Errorf("pending orders = %+v, want only %s", got, first.Code)
	}
}

func TestFinalizeArgumentValidation(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Finalize(ctx, 7, 1, nil, unitPrice); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty selection: %v, want ErrInvalidArgument", err)
	}
	if _, err := eng.Finalize(ctx, 7, 1, []uint64{0}, unitPrice); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero seat id: %v, want ErrInvalidArgument", err)
	}
	if _, err := eng.Finalize(ctx, 7, 99, []uint64{101}, unitPrice); !errors.Is(err, catalog.ErrEventNotFound) {
		t.Errorf("unknown event: %v, want ErrEventNotFound", err)
	}
	if _, err := eng.Finalize(ctx, 7, 1, []uint64{999}, unitPrice); !errors.Is(err, inventory.ErrSeatNotFound) {
		t.Errorf("unknown seat: %v, want ErrSeatNotFound", err)
	}
}

func TestFinalizeDeduplicatesSelection(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ord, err := eng.Finalize(context.Background(), 7, 1, []uint64{101, 101, 102}, unitPrice)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(ord.SeatIDs) != 2 {
		t.Errorf("SeatIDs = %v, want duplicates collapsed", ord.SeatIDs)
	}
	if ord.AmountCents != 2*unitPrice {
		t.Errorf("AmountCents = %d, want price for 2 seats", ord.AmountCents)
	}
}

func TestConfirmPaymentMovesSeatsToPaid(t *testing.T) {
	eng, _, pub := newTestEngine(t)
	ctx := context.Background()

	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101, 102}, unitPrice)
	paid, err := eng.ConfirmPayment(ctx, ord.Code, "1234")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if paid.PayStatus != model.PayPaid || paid.PaymentProof != "1234" {
		t.Errorf("order after confirm = %+v", paid)
	}
	for _, id := range []uint64{101, 102} {
		s, _ := eng.Seat(id)
		if s.Status != model.SeatPaid || s.HeldByOrder != ord.Code {
			t.Errorf("seat %d = %s held by %q, want PAID by %s", id, s.Status, s.HeldByOrder, ord.Code)
		}
	}
	want := []string{queue.TypeOrderHeld, queue.TypeOrderPaid}
	if got := pub.types(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("published events = %v, want %v", got, want)
	}
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	eng, _, pub := newTestEngine(t)
	ctx := context.Background()

	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101}, unitPrice)
	if _, err := eng.ConfirmPayment(ctx, ord.Code, "1234"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	again, err := eng.ConfirmPayment(ctx, ord.Code, "5678")
	if err != nil {
		t.Fatalf("duplicate confirm: %v", err)
	}
	// The duplicate changes nothing, including the stored proof.
	if again.PaymentProof != "1234" {
		t.Errorf("proof after duplicate confirm = %q, want original 1234", again.PaymentProof)
	}
	if got := pub.types(); len(got) != 2 {
		t.Errorf("published %d events, duplicate confirm must not publish", len(got))
	}
}

func TestConfirmPaymentProofValidation(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101}, unitPrice)

	for _, proof := range []string{"", "   ", string(make([]byte, 65))} {
		if _, err := eng.ConfirmPayment(ctx, ord.Code, proof); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("proof %q: error = %v, want ErrInvalidArgument", proof, err)
		}
	}
	s, _ := eng.Seat(101)
	if s.Status != model.SeatHeld {
		t.Errorf("seat 101 = %s after rejected proofs, want still HELD", s.Status)
	}
}

func TestForceConfirmSkipsProof(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101}, unitPrice)

	paid, err := eng.ForceConfirm(ctx, ord.Code)
	if err != nil {
		t.Fatalf("ForceConfirm: %v", err)
	}
	if paid.PayStatus != model.PayPaid || paid.PaymentProof != "" {
		t.Errorf("order after force confirm = %+v", paid)
	}
}

func TestCancelReleasesPendingOrder(t *testing.T) {
	eng, _, pub := newTestEngine(t)
	ctx := context.Background()
	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101, 102}, unitPrice)

	if err := eng.Cancel(ctx, ord.Code); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	for _, id := range []uint64{101, 102} {
		s, _ := eng.Seat(id)
		if s.Status != model.SeatFree || s.HeldByOrder != "" {
			t.Errorf("seat %d = %s held by %q after cancel, want FREE", id, s.Status, s.HeldByOrder)
		}
	}
	if _, err := eng.Order(ord.Code); !errors.Is(err, order.ErrOrderNotFound) {
		t.Errorf("Order after cancel: %v, want ErrOrderNotFound", err)
	}
	if got := pub.types(); got[len(got)-1] != queue.TypeOrderReleased {
		t.Errorf("last event = %s, want %s", got[len(got)-1], queue.TypeOrderReleased)
	}
}

func TestCancelRefusesPaidOrder(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101}, unitPrice)
	_, _ = eng.ConfirmPayment(ctx, ord.Code, "1234")

	if err := eng.Cancel(ctx, ord.Code); !errors.Is(err, ErrOrderPaid) {
		t.Fatalf("Cancel on paid order: %v, want ErrOrderPaid", err)
	}
	s, _ := eng.Seat(101)
	if s.Status != model.SeatPaid {
		t.Errorf("seat 101 = %s after refused cancel, want PAID", s.Status)
	}
	if _, err := eng.Order(ord.Code); err != nil {
		t.Errorf("paid order must survive a refused cancel: %v", err)
	}
}

func TestForceReleaseUnsellsPaidSeats(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101, 102}, unitPrice)
	_, _ = eng.ConfirmPayment(ctx, ord.Code, "1234")

	if err := eng.ForceRelease(ctx, ord.Code); err != nil {
		t.Fatalf("ForceRelease: %v", err)
	}
	for _, id := range []uint64{101, 102} {
		s, _ := eng.Seat(id)
		if s.Status != model.SeatFree || s.HeldByOrder != "" {
			t.Errorf("seat %d = %s held by %q, want FREE", id, s.Status, s.HeldByOrder)
		}
	}
	if _, err := eng.Order(ord.Code); !errors.Is(err, order.ErrOrderNotFound) {
		t.Errorf("Order after force release: %v, want ErrOrderNotFound", err)
	}
}

func TestExpireStaleHolds(t *testing.T) {
	eng, _, pub := newTestEngine(t)
	ctx := context.Background()
	ttl := 15 * time.Minute

	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101, 102}, unitPrice)

	// Just inside the TTL: nothing expires.
	if n := eng.ExpireStaleHolds(ctx, ord.CreatedAt.Add(ttl-time.Nanosecond), ttl); n != 0 {
		t.Fatalf("expired %d orders inside TTL, want 0", n)
	}

	// Exactly at the TTL boundary the hold is stale.
	if n := eng.ExpireStaleHolds(ctx, ord.CreatedAt.Add(ttl), ttl); n != 1 {
		t.Fatalf("expired %d orders at TTL boundary, want 1", n)
	}
	for _, id := range []uint64{101, 102} {
		s, _ := eng.Seat(id)
		if s.Status != model.SeatFree {
			t.Errorf("seat %d = %s after expiry, want FREE", id, s.Status)
		}
	}
	if _, err := eng.Order(ord.Code); !errors.Is(err, order.ErrOrderNotFound) {
		t.Errorf("Order after expiry: %v, want ErrOrderNotFound", err)
	}

	// A second sweep finds nothing.
	if n := eng.ExpireStaleHolds(ctx, ord.CreatedAt.Add(2*ttl), ttl); n != 0 {
		t.Errorf("second sweep expired %d orders, want 0", n)
	}
	if got := pub.types(); got[len(got)-1] != queue.TypeOrderExpired {
		t.Errorf("last event = %s, want %s", got[len(got)-1], queue.TypeOrderExpired)
	}
}

func TestExpireNeverTouchesPaidOrders(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	ttl := 15 * time.Minute

	ord, _ := eng.Finalize(ctx, 7, 1, []uint64{101}, unitPrice)
	_, _ = eng.ConfirmPayment(ctx, ord.Code, "1234")

	if n := eng.ExpireStaleHolds(ctx, ord.CreatedAt.Add(24*time.Hour), ttl); n != 0 {
		t.Fatalf("expired %d orders, paid orders must never expire", n)
	}
	s, _ := eng.Seat(101)
	if s.Status != model.SeatPaid {
		t.Errorf("seat 101 = %s, want PAID", s.Status)
	}
}

func TestConcurrentFinalizeSingleWinner(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	codes := make(chan string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(requester uint64) {
			defer wg.Done()
			if ord, err := eng.Finalize(ctx, requester, 1, []uint64{110, 111}, unitPrice); err == nil {
				codes <- ord.Code
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	close(codes)

	var winners []string
	for c := range codes {
		winners = append(winners, c)
	}
	if len(winners) != 1 {
		t.Fatalf("%d finalizes succeeded for the same seats, want exactly 1", len(winners))
	}
	for _, id := range []uint64{110, 111} {
		s, _ := eng.Seat(id)
		if s.HeldByOrder != winners[0] {
			t.Errorf("seat %d held by %q, want %q", id, s.HeldByOrder, winners[0])
		}
	}
	if got := eng.PendingOrders(0); len(got) != 1 {
		t.Errorf("%d pending orders, want 1", len(got))
	}
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	eng, mem, _ := newTestEngine(t)
	ctx := context.Background()

	mem.SaveErr = errors.New("disk gone")
	ord, err := eng.Finalize(ctx, 7, 1, []uint64{101}, unitPrice)
	if err != nil {
		t.Fatalf("Finalize with failing store: %v", err)
	}

	// In-memory state is authoritative.
	s, _ := eng.Seat(101)
	if s.Status != model.SeatHeld {
		t.Fatalf("seat 101 = %s, want HELD despite persistence failure", s.Status)
	}

	// The next successful write carries the whole current state.
	mem.SaveErr = nil
	if _, err := eng.ConfirmPayment(ctx, ord.Code, "1234"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	seats, _ := mem.LoadSeats(ctx)
	var got model.SeatStatus
	for _, s := range seats {
		if s.ID == 101 {
			got = s.Status
		}
	}
	if got != model.SeatPaid {
		t.Errorf("persisted seat 101 = %s, want PAID after healing write", got)
	}
}

func TestSnapshotRecoveryReproducesState(t *testing.T) {
	eng, mem, _ := newTestEngine(t)
	ctx := context.Background()

	held, _ := eng.Finalize(ctx, 7, 1, []uint64{101, 102}, unitPrice)
	paid, _ := eng.Finalize(ctx, 8, 1, []uint64{103}, unitPrice)
	_, _ = eng.ConfirmPayment(ctx, paid.Code, "1234")

	// Rebuild a second engine from the persisted snapshots, as the
	// server does at startup.
	seats, _ := mem.LoadSeats(ctx)
	persisted, _ := mem.LoadOrders(ctx)
	cat := catalog.New([]model.Event{{ID: 1, Title: "Evening Show"}})
	restored := order.NewStore(seqGen())
	restored.Restore(persisted)
	reborn := New(cat, inventory.New(seats), restored, nil, nil)

	s, _ := reborn.Seat(101)
	if s.Status != model.SeatHeld || s.HeldByOrder != held.Code {
		t.Errorf("recovered seat 101 = %s held by %q", s.Status, s.HeldByOrder)
	}
	s, _ = reborn.Seat(103)
	if s.Status != model.SeatPaid || s.HeldByOrder != paid.Code {
		t.Errorf("recovered seat 103 = %s held by %q", s.Status, s.HeldByOrder)
	}
	got, err := reborn.Order(paid.Code)
	if err != nil {
		t.Fatalf("recovered Order(%s): %v", paid.Code, err)
	}
	if got.PayStatus != model.PayPaid || got.PaymentProof != "1234" {
		t.Errorf("recovered paid order = %+v", got)
	}

	// The recovered engine keeps enforcing seat exclusivity.
	if _, err := reborn.Finalize(ctx, 9, 1, []uint64{101}, unitPrice); err == nil {
		t.Error("finalize on a recovered held seat succeeded")
	}
}
