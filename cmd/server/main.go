package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bannnned/sea-cinema-booking/internal/catalog"
	"github.com/bannnned/sea-cinema-booking/internal/config"
	"github.com/bannnned/sea-cinema-booking/internal/engine"
	"github.com/bannnned/sea-cinema-booking/internal/handler"
	"github.com/bannnned/sea-cinema-booking/internal/inventory"
	"github.com/bannnned/sea-cinema-booking/internal/middleware"
	"github.com/bannnned/sea-cinema-booking/internal/model"
	"github.com/bannnned/sea-cinema-booking/internal/order"
	"github.com/bannnned/sea-cinema-booking/internal/persistence"
	"github.com/bannnned/sea-cinema-booking/internal/queue"
	"github.com/bannnned/sea-cinema-booking/internal/reconcile"
	"github.com/bannnned/sea-cinema-booking/internal/router"
	"github.com/bannnned/sea-cinema-booking/internal/session"
	"github.com/bannnned/sea-cinema-booking/internal/utils"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store := openStore(cfg)
	cat, inv, orders := bootstrap(ctx, cfg, store)

	eng := engine.New(cat, inv, orders, store, queue.NewPublisher())
	rec := reconcile.New(eng)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; sessions are process-local and rate limiting is off")
	}
	sessions := session.NewStore(rdb, cfg.SessionTTL)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Audit consumer for the order.lifecycle queue.
	go func() {
		if err := queue.StartLifecycleConsumer(); err != nil {
			log.Printf("lifecycle-consumer stopped: %v", err)
		}
	}()

	// The engine runs no timer of its own; this ticker is the external
	// scheduler that sweeps stale holds.
	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for now := range t.C {
			if n := eng.ExpireStaleHolds(ctx, now.UTC(), cfg.HoldTTL); n > 0 {
				log.Printf("expiry: released %d stale hold order(s)", n)
			}
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e,
		handler.NewAuthHandler(cfg.JWTSecret, cfg.AccessTTLMin, cfg.FrontendSecretHash, cfg.OperatorSecretHash),
		handler.NewCatalogHandler(eng))
	router.RegisterBooking(e, handler.NewBookingHandler(eng, sessions, cfg.UnitPriceCents), cfg.JWTSecret, limiter)
	router.RegisterOperator(e, handler.NewOperatorHandler(rec), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// openStore picks the persistence collaborator: MySQL when configured,
// otherwise an in-memory store (state is lost on restart).
func openStore(cfg config.Config) persistence.Store {
	if cfg.DBHost == "" {
		log.Printf("DB_HOST not set; running with in-memory persistence")
		return persistence.NewMemory()
	}
	db, err := persistence.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	store, err := persistence.NewMySQL(db)
	if err != nil {
		log.Fatalf("prepare schema: %v", err)
	}
	return store
}

// bootstrap rebuilds the catalog, inventory and order store from the
// persisted snapshots, seeding an empty store from the configured
// events.  Reloading persisted state reproduces the exact seat and
// order status map of the previous run.
func bootstrap(ctx context.Context, cfg config.Config, store persistence.Store) (*catalog.Catalog, *inventory.Inventory, *order.Store) {
	events, err := store.LoadEvents(ctx)
	if err != nil {
		log.Fatalf("load events: %v", err)
	}
	if len(events) == 0 {
		events = cfg.Events
		if len(events) == 0 {
			log.Fatalf("no events persisted and EVENTS is empty; nothing to sell")
		}
		if err := store.SaveEvents(ctx, events); err != nil {
			log.Fatalf("seed events: %v", err)
		}
		log.Printf("seeded %d event(s) from configuration", len(events))
	}

	seats, err := store.LoadSeats(ctx)
	if err != nil {
		log.Fatalf("load seats: %v", err)
	}
	if len(seats) == 0 {
		seats = seedSeats(events, cfg.SeatsPerEvent)
		if err := store.SaveSeats(ctx, seats); err != nil {
			log.Fatalf("seed seats: %v", err)
		}
		log.Printf("seeded %d seat(s) across %d event(s)", len(seats), len(events))
	}

	persisted, err := store.LoadOrders(ctx)
	if err != nil {
		log.Fatalf("load orders: %v", err)
	}

	cat := catalog.New(events)
	inv := inventory.New(seats)
	orders := order.NewStore(utils.NewOrderCode)
	orders.Restore(persisted)
	return cat, inv, orders
}

// seedSeats creates the fixed per-event seat blocks.  Seat IDs are
// unique across the whole inventory: event 1 gets 101..1NN, event 2
// gets 201..2NN, and so on.
func seedSeats(events []model.Event, perEvent int) []model.Seat {
	seats := make([]model.Seat, 0, len(events)*perEvent)
	for _, ev := range events {
		for n := 1; n <= perEvent; n++ {
			seats = append(seats, model.Seat{
				ID:         ev.ID*100 + uint64(n),
				EventID:    ev.ID,
				SeatNumber: uint32(n),
				Status:     model.SeatFree,
			})
		}
	}
	return seats
}
