package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sonolens/api/pkg/response"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) bool

// Static turns a start-up fact into a HealthCheck
func Static(ok bool) HealthCheck {
	return func(context.Context) bool { return ok }
}

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"timestamp": time.Now().Unix(),
	})
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	services := make(fiber.Map, len(h.checks))
	for name, check := range h.checks {
		services[name] = check(ctx)
	}

	return response.OK(c, fiber.Map{
		"status":   "ok",
		"services": services,
	})
}
