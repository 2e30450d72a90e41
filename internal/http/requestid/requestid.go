// Package requestid tags each request with an X-Request-ID for logs and
// client-facing error references.
package requestid

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

// ContextKey stores the request id on the echo context.
const ContextKey = "request_id"

const maxInboundLength = 128

// Middleware reuses a well-formed inbound X-Request-ID or mints a new one.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
			if !validInbound(id) {
				id = uuid.NewString()
			}
			c.Set(ContextKey, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

func FromContext(c *echo.Context) string {
	if c == nil {
		return ""
	}
	id, _ := c.Get(ContextKey).(string)
	return id
}

func validInbound(id string) bool {
	if id == "" || len(id) > maxInboundLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
