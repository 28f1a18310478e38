package handlers

import (
	"context"
	"time"

	"go-logstore/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// StoreDiagnostics is the diagnostic surface of the log store façade.
type StoreDiagnostics interface {
	CurrentBackend() repositories.BackendStatus
	CheckHealth(ctx context.Context) (int64, bool)
}

// HealthHandler reports service and log store health.
type HealthHandler struct {
	store StoreDiagnostics
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store StoreDiagnostics) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	count, ok := h.store.CheckHealth(ctx)
	status := "healthy"
	code := fiber.StatusOK
	if !ok {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"store": fiber.Map{
			"backend": h.store.CurrentBackend(),
			"records": count,
		},
	})
}
