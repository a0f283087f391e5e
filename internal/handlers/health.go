package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// Health reports "ok" when every probe passes, "degraded" otherwise.
func Health(checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := "ok"
		services := fiber.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				services[name] = err.Error()
				status = "degraded"
				continue
			}
			services[name] = "connected"
		}

		code := fiber.StatusOK
		if status != "ok" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":   status,
			"version":  "1.0.0",
			"services": services,
		})
	}
}
