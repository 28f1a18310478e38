package middleware

import (
	"go-logstore/internal/logging" // To get the base loggers

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLoggers is a middleware that injects request-scoped loggers into c.Locals().
// These loggers include a unique "request_id" field.
// It creates scoped versions of both the file/console logger and the record logger.
// It also stores the request_id string in Locals.
func RequestLoggers(baseFileLogger, baseRecordLogger *zap.Logger) fiber.Handler {
	if baseFileLogger == nil {
		baseFileLogger = zap.NewNop()
	}
	if baseRecordLogger == nil {
		baseRecordLogger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		// Add request_id to response headers for client-side correlation
		c.Set(RequestIDHeader, requestID)
		c.Locals(RequestIDKey, requestID)

		c.Locals(RequestFileLoggerKey, baseFileLogger.With(zap.String("request_id", requestID)))
		c.Locals(RequestRecordLoggerKey, baseRecordLogger.With(zap.String("request_id", requestID)))

		return c.Next()
	}
}

// GetRequestFileLogger retrieves the request-scoped file/console logger from fiber.Ctx.Locals.
// Falls back to the global file logger if not found.
func GetRequestFileLogger(c *fiber.Ctx) *zap.Logger {
	if logger, ok := c.Locals(RequestFileLoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return logging.GetFileLogger()
}

// GetRequestRecordLogger retrieves the request-scoped record logger from fiber.Ctx.Locals.
// Falls back to the global record logger (which might be Nop).
func GetRequestRecordLogger(c *fiber.Ctx) *zap.Logger {
	if logger, ok := c.Locals(RequestRecordLoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return logging.GetRecordLogger()
}

// GetRequestID retrieves the request ID string from fiber.Ctx.Locals.
// Returns an empty string if not found.
func GetRequestID(c *fiber.Ctx) string {
	if reqID, ok := c.Locals(RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}
