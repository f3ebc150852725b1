package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/bannnned/sea-cinema-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/bannnned/sea-cinema-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check, the token endpoint and
// the public catalog.  Availability responses are always live reads;
// there is deliberately no caching layer in front of them.
func RegisterRoutes(e *echo.Echo, a *handler.AuthHandler, cat *handler.CatalogHandler) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)
	// Token exchange for the two machine clients (frontend, operator).
	e.POST("/v1/auth/token", a.Token)
	// Public browsing: the event catalog and the live seat map.
	e.GET("/v1/events", cat.ListEvents)
	e.GET("/v1/events/:id/seats", cat.EventSeats)
}

// RegisterBooking registers the front-end facing booking flow under
// /v1.  All routes require a valid access token with the FRONTEND role
// and are rate limited per client and route.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(handler.RoleFrontend, handler.RoleOperator))
	if limiter != nil {
		g.Use(limiter)
	}
	// Pick-session flow: choose event, toggle seats, finalize.
	g.GET("/sessions/:requester_id", b.GetSession)
	g.PUT("/sessions/:requester_id/event", b.SetEvent)
	g.POST("/sessions/:requester_id/seats/toggle", b.ToggleSeat)
	g.POST("/sessions/:requester_id/finalize", b.Finalize)
	// Order flow: self-reported payment proof and cancellation.
	g.POST("/orders/:code/payment", b.ConfirmPayment)
	g.DELETE("/orders/:code", b.Cancel)
}

// RegisterOperator registers the reconciliation endpoints under
// /v1/operator.  The OPERATOR role requirement here is the
// authorization checkpoint in front of the reconciliation API; every
// handler additionally forwards the privilege claim so the API itself
// can refuse callers that somehow arrive without it.
func RegisterOperator(e *echo.Echo, o *handler.OperatorHandler, jwtSecret string) {
	g := e.Group("/v1/operator")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(handler.RoleOperator))
	g.GET("/orders", o.ListPending)
	g.POST("/orders/:code/confirm", o.ForceConfirm)
	g.DELETE("/orders/:code", o.ForceRelease)
}
