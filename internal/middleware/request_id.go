package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const requestIDContextKey = "requestID"

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it back.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDContextKey,
	})
}

// GetRequestID returns the correlation identifier of the current request.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDContextKey).(string)
	return id
}
