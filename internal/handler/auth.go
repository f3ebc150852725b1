package handler

// This file implements the token endpoint for the two machine clients
// of the engine: the front-end (chat bot or web UI) and the operator
// console.  Each client presents a shared secret; the handler verifies
// it against the bcrypt hash from configuration and issues a short-
// lived HS256 access token carrying the client's role.  There is no
// user database; requesters are identified by the front-end itself,
// and the engine only needs to know which *kind* of caller it is
// talking to.

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bannnned/sea-cinema-booking/internal/utils"
)

// Client role names embedded in the JWT "role" claim.
const (
	RoleFrontend = "FRONTEND"
	RoleOperator = "OPERATOR"
)

// AuthHandler issues access tokens for the configured clients.
type AuthHandler struct {
	JWTSecret          string // secret used to sign access tokens
	AccessTTLMin       int    // token lifetime in minutes
	FrontendSecretHash string // bcrypt hash of the front-end secret
	OperatorSecretHash string // bcrypt hash of the operator secret
}

// NewAuthHandler constructs an AuthHandler from configuration values.
func NewAuthHandler(jwtSecret string, accessTTLMin int, frontendHash, operatorHash string) *AuthHandler {
	return &AuthHandler{
		JWTSecret:          jwtSecret,
		AccessTTLMin:       accessTTLMin,
		FrontendSecretHash: frontendHash,
		OperatorSecretHash: operatorHash,
	}
}

// Token handles POST /v1/auth/token.  The request body names the
// client ("frontend" or "operator") and its secret; on success the
// response carries a bearer token and its expiry.  Unknown clients and
// wrong secrets are both answered with 401 so the endpoint does not
// reveal which clients exist.
func (h *AuthHandler) Token(c echo.Context) error {
	var body struct {
		Client string `json:"client"`
		Secret string `json:"secret"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var hash, role string
	switch body.Client {
	case "frontend":
		hash, role = h.FrontendSecretHash, RoleFrontend
	case "operator":
		hash, role = h.OperatorSecretHash, RoleOperator
	default:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !utils.VerifyPassword(hash, body.Secret) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tok, err := utils.NewAccessToken(h.JWTSecret, body.Client, role, h.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
		"role":         role,
	})
}
