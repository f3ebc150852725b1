// Package catalog holds the immutable-for-the-session list of
// schedulable events.  The catalog is populated once at bootstrap and
// is read-only afterwards, so lookups need no locking.
package catalog

import (
	"errors"
	"sort"

	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// ErrEventNotFound is returned when an event ID does not exist in the
// catalog.  Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// Catalog is a read-only index of events keyed by ID.  It validates
// event identifiers for the rest of the system.
type Catalog struct {
	byID    map[uint64]model.Event
	ordered []model.Event
}

// New builds a Catalog from the given events.  Events are copied and
// ordered by start time (ties broken by ID) so that Events() returns a
// stable listing.  Duplicate IDs keep the last occurrence.
func New(events []model.Event) *Catalog {
	c := &Catalog{byID: make(map[uint64]model.Event, len(events))}
	for _, ev := range events {
		c.byID[ev.ID] = ev
	}
	c.ordered = make([]model.Event, 0, len(c.byID))
	for _, ev := range c.byID {
		c.ordered = append(c.ordered, ev)
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		if c.ordered[i].StartsAt.Equal(c.ordered[j].StartsAt) {
			return c.ordered[i].ID < c.ordered[j].ID
		}
		return c.ordered[i].StartsAt.Before(c.ordered[j].StartsAt)
	})
	return c
}

// Events returns all events ordered by start time.  The returned slice
// is a copy; callers may not mutate catalog state through it.
func (c *Catalog) Events() []model.Event {
	out := make([]model.Event, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Event returns the event with the given ID or ErrEventNotFound.
func (c *Catalog) Event(id uint64) (model.Event, error) {
	ev, ok := c.byID[id]
	if !ok {
		return model.Event{}, ErrEventNotFound
	}
	return ev, nil
}

// Has reports whether the given event ID exists.
func (c *Catalog) Has(id uint64) bool {
	_, ok := c.byID[id]
	return ok
}
