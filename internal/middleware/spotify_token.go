package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/pkg/response"
)

// SpotifyTokenHeader carries the caller's Spotify access token
const SpotifyTokenHeader = "X-Spotify-Token"

// RequireSpotifyToken rejects requests that do not carry a Spotify access token
func RequireSpotifyToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get(SpotifyTokenHeader))
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			return response.Unauthorized(c, "Missing Spotify access token")
		}
		c.Locals("spotifyToken", token)
		return c.Next()
	}
}

// GetSpotifyToken returns the token stored by RequireSpotifyToken, or the raw header
func GetSpotifyToken(c *fiber.Ctx) string {
	if token, ok := c.Locals("spotifyToken").(string); ok {
		return token
	}
	return strings.TrimPrefix(strings.TrimSpace(c.Get(SpotifyTokenHeader)), "Bearer ")
}
