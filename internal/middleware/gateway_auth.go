package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/internal/auth"
	"github.com/sonolens/api/pkg/response"
)

// Identity headers written by the /auth/verify endpoint and forwarded by the gateway
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// GatewayAuthMiddleware trusts the identity headers a ForwardAuth gateway
// attached after calling /auth/verify.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(HeaderUserID)
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}

		setIdentity(c, &auth.Identity{
			UserID: userID,
			Email:  c.Get(HeaderUserEmail),
			Name:   c.Get(HeaderUserName),
			Source: "gateway",
		})
		return c.Next()
	}
}
