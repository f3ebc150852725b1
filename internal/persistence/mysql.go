// Package persistence implements the durable-storage collaborator.
// The engine treats storage as a pair of snapshot sinks (seats and
// orders); this package provides a MySQL-backed implementation plus an
// in-memory one for tests and broker-less runs.  Snapshots are
// wholesale: each save replaces the previous one inside a transaction,
// so a later successful write heals an earlier failed one.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bannnned/sea-cinema-booking/internal/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// MySQL persists engine snapshots in four tables: events, seats,
// orders and order_seats.  It also loads them back at bootstrap so a
// restart reproduces the exact status map.
type MySQL struct {
	db *sql.DB
}

// NewMySQL returns a MySQL store bound to the given database handle
// and ensures the schema exists.
func NewMySQL(db *sql.DB) (*MySQL, error) {
	s := &MySQL{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MySQL) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id        BIGINT UNSIGNED NOT NULL PRIMARY KEY,
			title     VARCHAR(255)    NOT NULL,
			starts_at DATETIME        NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS seats (
			id            BIGINT UNSIGNED NOT NULL PRIMARY KEY,
			event_id      BIGINT UNSIGNED NOT NULL,
			seat_number   INT UNSIGNED    NOT NULL,
			status        VARCHAR(8)      NOT NULL,
			held_by_order VARCHAR(16)     NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			code          VARCHAR(16)     NOT NULL PRIMARY KEY,
			requester_id  BIGINT UNSIGNED NOT NULL,
			event_id      BIGINT UNSIGNED NOT NULL,
			amount_cents  INT UNSIGNED    NOT NULL,
			pay_status    VARCHAR(8)      NOT NULL,
			payment_proof VARCHAR(64)     NOT NULL DEFAULT '',
			created_at    DATETIME        NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_seats (
			order_code VARCHAR(16)     NOT NULL,
			seat_id    BIGINT UNSIGNED NOT NULL,
			PRIMARY KEY (order_code, seat_id)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// SaveSeats replaces the persisted seat snapshot.  The whole write
// happens inside one transaction so readers of the table never observe
// a partially written snapshot.
func (s *MySQL) SaveSeats(ctx context.Context, seats []model.Seat) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM seats`); err != nil {
		return err
	}
	if len(seats) > 0 {
		query := `INSERT INTO seats (id, event_id, seat_number, status, held_by_order) VALUES `
		args := make([]interface{}, 0, len(seats)*5)
		for i, st := range seats {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?)"
			args = append(args, st.ID, st.EventID, st.SeatNumber, string(st.Status), st.HeldByOrder)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SaveOrders replaces the persisted order snapshot, including the
// order_seats join rows, inside one transaction.
func (s *MySQL) SaveOrders(ctx context.Context, orders []model.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_seats`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return err
	}
	if len(orders) > 0 {
		query := `INSERT INTO orders (code, requester_id, event_id, amount_cents, pay_status, payment_proof, created_at) VALUES `
		args := make([]interface{}, 0, len(orders)*7)
		for i, o := range orders {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?)"
			args = append(args, o.Code, o.RequesterID, o.EventID, o.AmountCents,
				string(o.PayStatus), o.PaymentProof, o.CreatedAt.UTC().Format(dbTimeLayout))
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		seatQuery := `INSERT INTO order_seats (order_code, seat_id) VALUES `
		seatArgs := make([]interface{}, 0)
		first := true
		for _, o := range orders {
			for _, sid := range o.SeatIDs {
				if !first {
					seatQuery += ","
				}
				first = false
				seatQuery += "(?, ?)"
				seatArgs = append(seatArgs, o.Code, sid)
			}
		}
		if len(seatArgs) > 0 {
			if _, err := tx.ExecContext(ctx, seatQuery, seatArgs...); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SaveEvents persists the event catalog.  Used once when seeding an
// empty database from configuration.
func (s *MySQL) SaveEvents(ctx context.Context, events []model.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return err
	}
	if len(events) > 0 {
		query := `INSERT INTO events (id, title, starts_at) VALUES `
		args := make([]interface{}, 0, len(events)*3)
		for i, ev := range events {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?)"
			args = append(args, ev.ID, ev.Title, ev.StartsAt.UTC().Format(dbTimeLayout))
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// LoadEvents returns the persisted event catalog ordered by start time.
func (s *MySQL) LoadEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, starts_at FROM events ORDER BY starts_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.StartsAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// LoadSeats returns the persisted seat snapshot ordered by seat ID.
func (s *MySQL) LoadSeats(ctx context.Context) ([]model.Seat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, event_id, seat_number, status, held_by_order FROM seats ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var st model.Seat
		var status string
		if err := rows.Scan(&st.ID, &st.EventID, &st.SeatNumber, &status, &st.HeldByOrder); err != nil {
			return nil, err
		}
		st.Status = model.SeatStatus(status)
		seats = append(seats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// LoadOrders returns the persisted order snapshot with seat IDs
// populated from order_seats, oldest first.
func (s *MySQL) LoadOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, requester_id, event_id, amount_cents, pay_status, payment_proof, created_at
		 FROM orders ORDER BY created_at, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []model.Order
	index := make(map[string]int)
	for rows.Next() {
		var o model.Order
		var status string
		if err := rows.Scan(&o.Code, &o.RequesterID, &o.EventID, &o.AmountCents, &status, &o.PaymentProof, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.PayStatus = model.PayStatus(status)
		index[o.Code] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}
	srows, err := s.db.QueryContext(ctx, `SELECT order_code, seat_id FROM order_seats ORDER BY order_code, seat_id`)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var code string
		var sid uint64
		if err := srows.Scan(&code, &sid); err != nil {
			return nil, err
		}
		idx, ok := index[code]
		if !ok {
			continue
		}
		orders[idx].SeatIDs = append(orders[idx].SeatIDs, sid)
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
