// Package handler exposes HTTP handlers for both authenticated and
// public endpoints.  This file defines the public browsing API: the
// event catalog and the live seat map.  Seat availability is always
// read straight from the inventory; once a finalize succeeds, the
// next read here observes the held seats, so these responses are never
// cached.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bannnned/sea-cinema-booking/internal/engine"
	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// CatalogHandler serves the public event and seat listings.
type CatalogHandler struct {
	Engine *engine.Engine
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(e *engine.Engine) *CatalogHandler {
	if e == nil {
		panic("nil engine passed to NewCatalogHandler")
	}
	return &CatalogHandler{Engine: e}
}

// PublicEvent is an event as exposed via the public API.
type PublicEvent struct {
	ID       uint64    `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
}

// PublicSeat is a seat as exposed via the public API.  The holding
// order code is deliberately omitted: availability is public, who
// holds a seat is not.
type PublicSeat struct {
	ID         uint64 `json:"id"`
	SeatNumber uint32 `json:"seat_number"`
	Status     string `json:"status"`
}

// ListEvents handles GET /v1/events.  Events are ordered by start time.
func (h *CatalogHandler) ListEvents(c echo.Context) error {
	events := h.Engine.Events()
	out := make([]PublicEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, PublicEvent{ID: ev.ID, Title: ev.Title, StartsAt: ev.StartsAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}

// EventSeats handles GET /v1/events/:id/seats.  It returns the event
// header plus the live seat map ordered by seat number.  Front-ends
// must re-fetch this after a failed finalize, since a conflict means
// their cached view is stale.
func (h *CatalogHandler) EventSeats(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.Engine.Event(eventID)
	if err != nil {
		return writeEngineError(c, err)
	}
	seats := h.Engine.SeatsFor(eventID)
	out := make([]PublicSeat, 0, len(seats))
	free := 0
	for _, s := range seats {
		if s.Status == model.SeatFree {
			free++
		}
		out = append(out, PublicSeat{ID: s.ID, SeatNumber: s.SeatNumber, Status: string(s.Status)})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event": PublicEvent{ID: ev.ID, Title: ev.Title, StartsAt: ev.StartsAt},
		"seats": out,
		"free":  free,
	})
}
