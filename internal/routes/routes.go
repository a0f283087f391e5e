// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"geopickup/internal/handlers"
	"geopickup/internal/middleware"
	"geopickup/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups every HTTP handler the API mounts. Notifications may be
// nil when no notification log is configured.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Tokens        *handlers.TokenHandler
	Validator     *handlers.ValidatorHandler
	CheckIns      *handlers.CheckInHandler
	Stats         *handlers.StatsHandler
	Location      *handlers.LocationHandler
	Notifications *handlers.NotificationHandler
	Health        fiber.Handler
}

// SetupRoutes configures all application routes. authenticate is the JWT
// middleware, or the mock principal in mock mode.
func SetupRoutes(app *fiber.App, h Handlers, authenticate fiber.Handler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to GeoPickup API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})
	app.Get("/health", h.Health)

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/login", h.Auth.LoginUser)
	api.Get("/schools", h.Location.Schools)

	protected := api.Group("", authenticate)
	protected.Post("/logout", h.Auth.LogoutUser)
	protected.Get("/me", h.Auth.Me)

	setupParentRoutes(protected, h)
	setupStaffRoutes(protected, h)
}

func setupParentRoutes(router fiber.Router, h Handlers) {
	tokens := router.Group("/tokens", middleware.HasPermission(models.PermissionTokenWrite))
	tokens.Post("/", h.Tokens.Generate)
	tokens.Get("/current", h.Tokens.Current)
	tokens.Get("/current/qr", h.Tokens.CurrentQR)
	tokens.Delete("/current", h.Tokens.Invalidate)

	router.Post("/location", middleware.HasPermission(models.PermissionLocationWrite), h.Location.Report)
	router.Get("/checkins", middleware.HasPermission(models.PermissionCheckInRead), h.CheckIns.List)
	router.Get("/checkins/count", middleware.HasPermission(models.PermissionCheckInRead), h.CheckIns.Count)
}

func setupStaffRoutes(router fiber.Router, h Handlers) {
	staff := middleware.RequireRole(models.RoleStaff)

	validator := router.Group("/validator", staff, middleware.HasPermission(models.PermissionValidatorScan))
	validator.Post("/validate", h.Validator.Validate)
	validator.Post("/redeem", h.Validator.Redeem)

	checkins := router.Group("/checkins", staff, middleware.HasPermission(models.PermissionCheckInWrite))
	checkins.Patch("/:id/status", h.CheckIns.UpdateStatus)
	checkins.Delete("/:id", h.CheckIns.Remove)
	checkins.Delete("/", h.CheckIns.Clear)

	stats := router.Group("/stats", staff, middleware.HasPermission(models.PermissionStatsRead))
	stats.Get("/", h.Stats.Pickup)
	stats.Get("/daily", h.Stats.Daily)
	stats.Get("/top", h.Stats.Top)

	router.Get("/geofence/regions", staff, h.Location.Regions)

	if h.Notifications != nil {
		router.Get("/notifications", middleware.RequireRole(), h.Notifications.List)
	}
}
