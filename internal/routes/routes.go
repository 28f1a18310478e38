package routes

import (
	"go-logstore/internal/bootstrap"
	"go-logstore/internal/config"
	mw "go-logstore/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRoutes configures the application routes.
func SetupRoutes(
	app *fiber.App,
	cfg *config.Config,
	logger *zap.Logger,
	components *bootstrap.AppComponents,
) {
	logger.Info("Setting up application routes...")

	// --- Public Routes ---
	app.Get("/health", components.HealthHandler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// --- API v1 Routes ---
	api := app.Group("/api/v1")

	// Admin unlock (public), e.g. POST /api/v1/admin/unlock
	components.AdminHandler.SetupAdminRoutes(api)

	// POST /api/v1/logs is public; everything else under /logs requires an admin token
	components.LogHandler.SetupLogRoutes(api, mw.Protected(cfg.JWTSecret))
}
