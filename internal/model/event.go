package model

import "time"

// Event represents a scheduled screening that seats can be booked
// for.  Events are loaded once at bootstrap and are immutable for
// the lifetime of the session; they are never deleted while the
// server is running.
//
// Fields:
//  ID       - primary key identifier.
//  Title    - movie title shown to customers.
//  StartsAt - when the screening begins (UTC).
type Event struct {
	ID       uint64    // events.id
	Title    string    // events.title
	StartsAt time.Time // events.starts_at
}
