package handlers

import (
	"errors"

	mw "go-logstore/internal/middleware"
	"go-logstore/internal/pkg/validation"
	"go-logstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler handles the admin unlock flow.
type AdminHandler struct {
	adminService services.AdminService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// UnlockRequest defines the expected JSON body for unlock requests
type UnlockRequest struct {
	PIN string `json:"pin" validate:"required,numeric,min=4,max=12"`
}

// Unlock handles POST /admin/unlock requests
func (h *AdminHandler) Unlock(c *fiber.Ctx) error {
	var req UnlockRequest
	logger := mw.GetRequestFileLogger(c)

	if !validation.ParseAndValidate(c, &req) {
		logger.Warn("Unlock request validation failed or bad request body")
		return nil // Response already sent by ParseAndValidate
	}

	res, err := h.adminService.Unlock(c.UserContext(), req.PIN)
	if err != nil {
		var attemptErr *services.AttemptError
		switch {
		case errors.As(err, &attemptErr):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":             "Invalid PIN",
				"remainingAttempts": attemptErr.Remaining,
			})
		case errors.Is(err, services.ErrAdminLocked):
			return c.Status(fiber.StatusLocked).JSON(fiber.Map{
				"error":       "Too many failed attempts, admin access is locked",
				"lockedUntil": h.adminService.Status().LockedUntil,
			})
		default:
			logger.Error("Internal server error during unlock", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unlock failed due to an internal error",
			})
		}
	}

	logger.Info("Admin unlock successful")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Admin access granted",
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
	})
}

// Status handles GET /admin/status requests
func (h *AdminHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.adminService.Status())
}

// SetupAdminRoutes registers admin routes with the Fiber app
func (h *AdminHandler) SetupAdminRoutes(router fiber.Router) {
	adminGroup := router.Group("/admin")
	adminGroup.Post("/unlock", h.Unlock)
	adminGroup.Get("/status", h.Status)
}
