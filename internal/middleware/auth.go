package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/internal/auth"
	"github.com/sonolens/api/pkg/response"
)

const (
	localUserID   = "userId"
	localEmail    = "email"
	localName     = "name"
	localIdentity = "identity"
)

// AuthMiddleware guards routes with bearer token authentication
type AuthMiddleware struct {
	authenticator *auth.Authenticator
}

// New builds the middleware. Either argument may be empty: OIDC only, HMAC
// only, or OIDC with an HMAC fallback.
func New(verifier auth.TokenVerifier, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{authenticator: auth.NewAuthenticator(verifier, jwtSecret)}
}

// NewLegacyAuthMiddleware accepts HMAC tokens only
func NewLegacyAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return New(nil, jwtSecret)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity in the context locals.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := m.authenticator.Authenticate(c.Get(fiber.HeaderAuthorization))
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			return response.Unauthorized(c, "Missing authorization header")
		case errors.Is(err, auth.ErrMalformedAuth):
			return response.Unauthorized(c, "Invalid authorization header format")
		case errors.Is(err, auth.ErrNotConfigured):
			return response.Unauthorized(c, "Authentication not configured")
		case err != nil:
			return response.Unauthorized(c, "Invalid or expired token")
		}

		setIdentity(c, id)
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, id *auth.Identity) {
	c.Locals(localUserID, id.UserID)
	c.Locals(localEmail, id.Email)
	c.Locals(localName, id.Name)
	c.Locals(localIdentity, id)
}

func localString(c *fiber.Ctx, key string) string {
	s, _ := c.Locals(key).(string)
	return s
}

// GetUserID returns the authenticated user's id, or "" outside an authenticated route
func GetUserID(c *fiber.Ctx) string { return localString(c, localUserID) }

func GetUserEmail(c *fiber.Ctx) string { return localString(c, localEmail) }

func GetUserName(c *fiber.Ctx) string { return localString(c, localName) }

// GetIdentity returns the full identity set by Authenticate or the gateway middleware
func GetIdentity(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(localIdentity).(*auth.Identity)
	return id
}
