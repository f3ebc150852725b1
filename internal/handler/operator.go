package handler

// This file defines the operator console endpoints.  Routing already
// requires the OPERATOR role, and each handler additionally passes the
// caller's privilege claim into the reconciliation API, which is the
// authoritative checkpoint: a future route wired without the role
// middleware would still be refused there.

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mw "github.com/bannnned/sea-cinema-booking/internal/middleware"
	"github.com/bannnned/sea-cinema-booking/internal/reconcile"
)

// OperatorHandler serves the reconciliation endpoints.
type OperatorHandler struct {
	API *reconcile.API
}

// NewOperatorHandler constructs an OperatorHandler.
func NewOperatorHandler(api *reconcile.API) *OperatorHandler {
	if api == nil {
		panic("nil reconcile API passed to NewOperatorHandler")
	}
	return &OperatorHandler{API: api}
}

// ListPending handles GET /v1/operator/orders.  It returns pending
// orders newest first, joined with event titles and seat numbers for
// review.  The optional ?limit= query bounds the result.
func (h *OperatorHandler) ListPending(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	items, err := h.API.ListPending(mw.IsOperator(c), limit)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// ForceConfirm handles POST /v1/operator/orders/:code/confirm.  It
// marks the order paid on the strength of an out-of-band verified
// payment, with no proof required.
func (h *OperatorHandler) ForceConfirm(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order code"})
	}
	ord, err := h.API.ForceConfirm(c.Request().Context(), mw.IsOperator(c), code)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": ord})
}

// ForceRelease handles DELETE /v1/operator/orders/:code.  It frees the
// order's seats regardless of status, including PAID, and removes
// the order.
func (h *OperatorHandler) ForceRelease(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order code"})
	}
	if err := h.API.ForceRelease(c.Request().Context(), mw.IsOperator(c), code); err != nil {
		return writeEngineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
