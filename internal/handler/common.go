package handler // handler defines http handlers

import (
	"errors"   // errors provides Is/As comparisons against engine sentinels
	"net/http" // HTTP status codes
	"strconv"  // strconv converts path parameters to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/bannnned/sea-cinema-booking/internal/catalog"
	"github.com/bannnned/sea-cinema-booking/internal/engine"
	"github.com/bannnned/sea-cinema-booking/internal/inventory"
	"github.com/bannnned/sea-cinema-booking/internal/order"
	"github.com/bannnned/sea-cinema-booking/internal/reconcile"
	"github.com/bannnned/sea-cinema-booking/internal/session"
)

// pathID parses a positive uint64 path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// writeEngineError maps the engine/reconcile error taxonomy onto HTTP
// responses.  Expected caller errors (not found, invalid argument,
// seat conflicts, missing privilege) come back with 4xx; an invariant
// violation is a bug signal and surfaces as a 500 without detail.
func writeEngineError(c echo.Context, err error) error {
	var unavailable *engine.SeatUnavailableError
	var invariant *engine.InvariantError
	switch {
	case errors.Is(err, catalog.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, inventory.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, order.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, engine.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	case errors.Is(err, engine.ErrOrderPaid):
		return c.JSON(http.StatusConflict, echo.Map{"error": "order already paid; release requires an operator"})
	case errors.Is(err, session.ErrWrongStage):
		return c.JSON(http.StatusConflict, echo.Map{"error": "operation does not match session stage"})
	case errors.Is(err, reconcile.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "seats unavailable",
			"unavailable": unavailable.ConflictingIDs,
		})
	case errors.As(err, &invariant):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal inconsistency"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
