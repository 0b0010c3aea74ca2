// internal/server/middleware.go
package server

import (
	"time"

	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/common/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

const requestIDLocalsKey = "portal.requestId"

// requestID keeps an incoming X-Request-ID or assigns a new one and echoes it
// on the response.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		c.Locals(requestIDLocalsKey, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// RequestIDFromCtx returns the id assigned by the request id middleware.
func RequestIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocalsKey).(string)
	return id
}

// accessLog logs and records every request after the handler chain and the
// error handler have run.
func accessLog(log logger.Logger, obs *observability.Observability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Render now so the logged status is the one the client sees.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		duration := time.Since(start)
		route := c.Route().Path

		obs.RecordRequest(c.UserContext(), route, status, duration)

		fields := map[string]interface{}{
			"requestId": RequestIDFromCtx(c),
			"method":    c.Method(),
			"path":      c.Path(),
			"route":     route,
			"status":    status,
			"duration":  duration.String(),
		}
		switch {
		case status >= 500:
			log.Error("request completed", fields)
		case status >= 400:
			log.Warn("request completed", fields)
		default:
			log.Info("request completed", fields)
		}
		return nil
	}
}
