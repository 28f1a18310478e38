package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxBodyLogSize = 1024 // Limit body size logged (e.g., 1KB)

var sensitiveFieldRe = regexp.MustCompile(`("(?i:pin|password|token)"\s*:\s*")[^"]*(")`)

// RequestDebugLogger logs request headers and body when the logger level is
// Debug, then the response status and latency once the request is handled.
func RequestDebugLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := GetRequestFileLogger(c)
		startTime := time.Now()

		if logger.Core().Enabled(zapcore.DebugLevel) {
			headersMap := make(map[string]string)
			c.Request().Header.VisitAll(func(key, value []byte) {
				headerKey := string(key)
				if headerKey == AuthorizationHeader || headerKey == "Cookie" {
					headersMap[headerKey] = "*** HIDDEN ***"
				} else {
					headersMap[headerKey] = string(value)
				}
			})

			logger.Debug("Incoming Request Details",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
				zap.Any("headers", headersMap),
				zap.String("body", describeBody(c.BodyRaw(), string(c.Request().Header.ContentType()))),
			)
		}

		err := c.Next()

		logger.Debug("Request Handled",
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("response_body", truncate(c.Response().Body())),
		)
		return err
	}
}

func describeBody(body []byte, contentType string) string {
	if len(body) == 0 {
		return "(Empty Body)"
	}
	if strings.Contains(contentType, "json") || strings.Contains(contentType, "xml") ||
		strings.Contains(contentType, "text") || strings.Contains(contentType, "form") {
		return truncate(body)
	}
	return fmt.Sprintf("(Binary or non-text body, size: %d bytes)", len(body))
}

// sanitizeSensitiveData masks PIN, password and token values in JSON text.
func sanitizeSensitiveData(body string) string {
	return sensitiveFieldRe.ReplaceAllString(body, `$1***$2`)
}

func truncate(b []byte) string {
	if len(b) == 0 {
		return "(Empty)"
	}
	if len(b) > maxBodyLogSize {
		return sanitizeSensitiveData(string(b[:maxBodyLogSize])) + "... (truncated)"
	}
	return sanitizeSensitiveData(string(b))
}
