package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware function that enforces that the
// authenticated client has one of the specified roles.  The roles
// correspond to the values stored in the JWT's "role" claim (FRONTEND
// or OPERATOR).  If the client's role is not in the allowed set, the
// request is aborted with a 403 Forbidden response.  It assumes a
// previous middleware has extracted the role into the context under
// the key "role".  This check is the authorization boundary in front
// of the reconciliation operations; no operator route may bypass it.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := c.Get("role")
			role, ok := v.(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// IsOperator reports whether the request carries the OPERATOR role.
// Handlers pass this claim down to the reconciliation API, which
// refuses every operation when it is false.
func IsOperator(c echo.Context) bool {
	role, ok := c.Get("role").(string)
	return ok && role == "OPERATOR"
}
