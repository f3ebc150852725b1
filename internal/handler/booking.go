package handler

// This file implements the front-end facing booking flow: driving a
// requester's pick session (choose event, toggle seats), finalizing
// the selection into a held order, confirming payment and cancelling.
// The session is advisory state only; every seat decision is made by
// the engine's atomic transition, so two front-ends racing on the same
// seats cannot both win regardless of what their sessions say.

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bannnned/sea-cinema-booking/internal/engine"
	"github.com/bannnned/sea-cinema-booking/internal/session"
)

// BookingHandler bundles the engine, the session store and the flat
// per-seat price applied to every finalize.
type BookingHandler struct {
	Engine         *engine.Engine
	Sessions       *session.Store
	UnitPriceCents uint32
}

// NewBookingHandler constructs a BookingHandler.  All dependencies
// must be non-nil.
func NewBookingHandler(e *engine.Engine, sessions *session.Store, unitPriceCents uint32) *BookingHandler {
	if e == nil || sessions == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: e, Sessions: sessions, UnitPriceCents: unitPriceCents}
}

// GetSession handles GET /v1/sessions/:requester_id and returns the
// requester's current pick session (an idle one when none exists).
func (h *BookingHandler) GetSession(c echo.Context) error {
	requesterID, ok := pathID(c, "requester_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid requester id"})
	}
	s, err := h.Sessions.Get(c.Request().Context(), requesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	return c.JSON(http.StatusOK, s)
}

// SetEvent handles PUT /v1/sessions/:requester_id/event.  It moves the
// session into the picking stage for the requested event, clearing any
// previous selection.
func (h *BookingHandler) SetEvent(c echo.Context) error {
	requesterID, ok := pathID(c, "requester_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid requester id"})
	}
	var body struct {
		EventID uint64 `json:"event_id"`
	}
	if err := c.Bind(&body); err != nil || body.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if _, err := h.Engine.Event(body.EventID); err != nil {
		return writeEngineError(c, err)
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.Get(ctx, requesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	if err := s.SetEvent(body.EventID); err != nil {
		return writeEngineError(c, err)
	}
	if err := h.Sessions.Save(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save session"})
	}
	return c.JSON(http.StatusOK, s)
}

// ToggleSeat handles POST /v1/sessions/:requester_id/seats/toggle.
// Selecting a seat twice toggles it off without touching inventory.
// A seat belonging to a different event than the session's is a usage
// error, not a conflict.
func (h *BookingHandler) ToggleSeat(c echo.Context) error {
	requesterID, ok := pathID(c, "requester_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid requester id"})
	}
	var body struct {
		SeatID uint64 `json:"seat_id"`
	}
	if err := c.Bind(&body); err != nil || body.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.Get(ctx, requesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	if s.Stage != session.StagePicking {
		return writeEngineError(c, session.ErrWrongStage)
	}
	seat, err := h.Engine.Seat(body.SeatID)
	if err != nil {
		return writeEngineError(c, err)
	}
	if seat.EventID != s.EventID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat does not belong to the selected event"})
	}
	selected, err := s.ToggleSeat(body.SeatID)
	if err != nil {
		return writeEngineError(c, err)
	}
	if err := h.Sessions.Save(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save session"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"selected": selected,
		"session":  s,
	})
}

// Finalize handles POST /v1/sessions/:requester_id/finalize.  It
// atomically converts the session's selection into a held order.  On a
// seat conflict the stale seats are dropped from the selection and the
// response carries both the conflicting IDs and the fresh seat map, so
// the front-end can re-render availability immediately.
func (h *BookingHandler) Finalize(c echo.Context) error {
	requesterID, ok := pathID(c, "requester_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid requester id"})
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.Get(ctx, requesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	if s.Stage != session.StagePicking {
		return writeEngineError(c, session.ErrWrongStage)
	}
	if len(s.SelectedSeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats selected"})
	}

	ord, err := h.Engine.Finalize(ctx, requesterID, s.EventID, s.SelectedSeatIDs, h.UnitPriceCents)
	if err != nil {
		var unavailable *engine.SeatUnavailableError
		if errors.As(err, &unavailable) {
			// Drop the lost seats from the selection and hand back the
			// live seat map; the cached view that produced this pick is
			// stale by definition.
			stale := make(map[uint64]struct{}, len(unavailable.ConflictingIDs))
			for _, id := range unavailable.ConflictingIDs {
				stale[id] = struct{}{}
			}
			kept := s.SelectedSeatIDs[:0]
			for _, id := range s.SelectedSeatIDs {
				if _, gone := stale[id]; !gone {
					kept = append(kept, id)
				}
			}
			s.SelectedSeatIDs = kept
			_ = h.Sessions.Save(ctx, s)
			return c.JSON(http.StatusConflict, echo.Map{
				"error":       "seats unavailable",
				"unavailable": unavailable.ConflictingIDs,
				"seats":       h.Engine.SeatsFor(s.EventID),
			})
		}
		return writeEngineError(c, err)
	}

	if err := s.BeginPayment(ord.Code); err == nil {
		_ = h.Sessions.Save(ctx, s)
	}
	return c.JSON(http.StatusCreated, echo.Map{"order": ord, "session": s})
}

// ConfirmPayment handles POST /v1/orders/:code/payment.  The requester
// self-reports a payment proof; confirming an already-paid order is an
// idempotent success.
func (h *BookingHandler) ConfirmPayment(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order code"})
	}
	var body struct {
		Proof string `json:"proof"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	ord, err := h.Engine.ConfirmPayment(ctx, code, body.Proof)
	if err != nil {
		return writeEngineError(c, err)
	}
	h.closeSession(c, ord.RequesterID, code)
	return c.JSON(http.StatusOK, echo.Map{"order": ord})
}

// Cancel handles DELETE /v1/orders/:code.  A pending order's held
// seats return to FREE; a paid order is refused, since releasing sold seats
// is an operator action.
func (h *BookingHandler) Cancel(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order code"})
	}
	ctx := c.Request().Context()
	ord, err := h.Engine.Order(code)
	if err != nil {
		return writeEngineError(c, err)
	}
	if err := h.Engine.Cancel(ctx, code); err != nil {
		return writeEngineError(c, err)
	}
	h.closeSession(c, ord.RequesterID, code)
	return c.NoContent(http.StatusNoContent)
}

// closeSession resets the requester's session when it was waiting on
// the given order.  Session cleanup is best-effort; the engine state
// is already committed.
func (h *BookingHandler) closeSession(c echo.Context, requesterID uint64, code string) {
	ctx := c.Request().Context()
	s, err := h.Sessions.Get(ctx, requesterID)
	if err != nil {
		return
	}
	if s.Stage == session.StageAwaitingPayment && s.OrderCode == code {
		s.Reset()
		_ = h.Sessions.Save(ctx, s)
	}
}
