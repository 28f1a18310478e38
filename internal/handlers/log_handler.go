package handlers

import (
	"errors"
	"strings"
	"time"

	"go-logstore/internal/logging"
	mw "go-logstore/internal/middleware"
	"go-logstore/internal/models"
	"go-logstore/internal/pkg/validation"
	"go-logstore/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const maxQueryLimit = 1000

// LogHandler exposes the log store over HTTP.
type LogHandler struct {
	repo repositories.LogRepository
}

// NewLogHandler creates a new LogHandler
func NewLogHandler(repo repositories.LogRepository) *LogHandler {
	return &LogHandler{repo: repo}
}

// CreateLogRequest is the body of POST /logs. Timestamp defaults to the
// time the request was received.
type CreateLogRequest struct {
	Level     string         `json:"level" validate:"required,oneof=debug info warn error fatal"`
	Message   string         `json:"message" validate:"required,max=8192"`
	Data      map[string]any `json:"data"`
	Tag       string         `json:"tag" validate:"max=128"`
	Timestamp int64          `json:"timestamp" validate:"gte=0"`
	SessionID string         `json:"sessionId" validate:"max=128"`
	UserID    string         `json:"userId" validate:"max=128"`
}

// ListLogsQuery holds the query string of GET /logs. Level is a
// comma-separated allow-list; a missing limit means maxQueryLimit.
type ListLogsQuery struct {
	Level  string `query:"level"`
	Tag    string `query:"tag" validate:"max=128"`
	From   int64  `query:"from" validate:"gte=0"`
	To     int64  `query:"to" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=0,lte=1000"` // keep in step with maxQueryLimit
	Offset int    `query:"offset" validate:"gte=0"`
}

func (q ListLogsQuery) options() models.QueryOptions {
	opts := models.QueryOptions{Tag: q.Tag, From: q.From, To: q.To, Limit: q.Limit, Offset: q.Offset}
	for _, l := range strings.Split(q.Level, ",") {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			opts.Levels = append(opts.Levels, l)
		}
	}
	return opts
}

// Create handles POST /logs
func (h *LogHandler) Create(c *fiber.Ctx) error {
	var req CreateLogRequest
	logger := mw.GetRequestFileLogger(c)

	if !validation.ParseAndValidate(c, &req) {
		logger.Warn("Create log request validation failed or bad request body")
		return nil // Response already sent by ParseAndValidate
	}
	if req.Timestamp == 0 {
		req.Timestamp = time.Now().UnixMilli()
	}

	id, err := h.repo.Save(c.UserContext(), models.LogEntry{
		Level:     req.Level,
		Message:   req.Message,
		Data:      req.Data,
		Tag:       req.Tag,
		Timestamp: req.Timestamp,
		SessionID: req.SessionID,
		UserID:    req.UserID,
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidEntry) {
			logger.Warn("Rejected invalid log entry", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// List handles GET /logs
func (h *LogHandler) List(c *fiber.Ctx) error {
	var q ListLogsQuery
	logger := mw.GetRequestFileLogger(c)

	if err := c.QueryParser(&q); err != nil {
		logger.Warn("Failed to parse log query", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid query parameters"})
	}
	if errs := validation.ValidateStruct(&q); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": errs})
	}
	opts := q.options()
	if opts.Limit == 0 {
		opts.Limit = maxQueryLimit
	}
	for _, l := range opts.Levels {
		if !isKnownLevel(l) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown level: " + l})
		}
	}

	logs, err := h.repo.Query(c.UserContext(), opts)
	if err != nil {
		return err
	}
	logger.Debug("Queried logs", zap.Int("returned", len(logs)))
	return c.JSON(fiber.Map{"logs": logs, "count": len(logs)})
}

// Get handles GET /logs/:id
func (h *LogHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid log id"})
	}
	entry, err := h.repo.FindByID(c.UserContext(), int64(id))
	if err != nil {
		return err
	}
	if entry == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Log not found"})
	}
	return c.JSON(entry)
}

// Count handles GET /logs/count
func (h *LogHandler) Count(c *fiber.Ctx) error {
	n, err := h.repo.GetCount(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}

// Clear handles DELETE /logs
func (h *LogHandler) Clear(c *fiber.Ctx) error {
	if err := h.repo.Clear(c.UserContext()); err != nil {
		return err
	}
	mw.GetRequestFileLogger(c).Warn("Log store cleared", zap.Any("subject", c.Locals(mw.SubjectKey)))
	// audit record lands in the freshly emptied store
	mw.GetRequestRecordLogger(c).Warn("log_store_cleared", zap.String(logging.FieldTag, "admin"))
	return c.JSON(fiber.Map{"message": "All logs cleared"})
}

// Purge handles DELETE /logs/old?before=<unix ms>
func (h *LogHandler) Purge(c *fiber.Ctx) error {
	before := int64(c.QueryInt("before", 0))
	if before <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Query parameter 'before' must be a positive Unix millisecond timestamp"})
	}
	n, err := h.repo.DeleteOldLogs(c.UserContext(), before)
	if err != nil {
		return err
	}
	mw.GetRequestFileLogger(c).Info("Purged old logs", zap.Int64("before", before), zap.Int64("deleted", n))
	mw.GetRequestRecordLogger(c).Info("log_store_purged",
		zap.String(logging.FieldTag, "admin"), zap.Int64("before", before), zap.Int64("deleted", n))
	return c.JSON(fiber.Map{"deleted": n})
}

// SetupLogRoutes registers the public write route and, behind protect, the
// read and delete routes. The write route is registered first so the group
// middleware never sees it.
func (h *LogHandler) SetupLogRoutes(router fiber.Router, protect fiber.Handler) {
	router.Post("/logs", h.Create)

	logs := router.Group("/logs", protect)
	logs.Get("/", h.List)
	logs.Get("/count", h.Count)
	logs.Get("/:id", h.Get)
	logs.Delete("/", h.Clear)
	logs.Delete("/old", h.Purge)
}

func isKnownLevel(l string) bool {
	for _, known := range models.Levels {
		if l == known {
			return true
		}
	}
	return false
}
