package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/address"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/services"
)

// ErrorHandler renders service errors with their HTTP status. Unknown errors become 500 and are logged.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var vErr *services.ValidationError
		var fErr *fiber.Error
		var sErr *address.SelectionError
		var data interface{}
		code := fiber.StatusInternalServerError
		msg := err.Error()

		switch {
		case errors.As(err, &vErr):
			code, msg, data = fiber.StatusUnprocessableEntity, vErr.Message, vErr.Fields
		case errors.As(err, &sErr):
			code, msg, data = fiber.StatusUnprocessableEntity, "validation failed", map[string]string{sErr.Field: sErr.Err.Error()}
		case errors.As(err, &fErr):
			code, msg = fErr.Code, fErr.Message
		case errors.Is(err, services.ErrUnauthorized):
			code = fiber.StatusUnauthorized
		case errors.Is(err, services.ErrForbidden):
			code = fiber.StatusForbidden
		case errors.Is(err, services.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, services.ErrInvalidState),
			errors.Is(err, services.ErrInvalidTransition),
			errors.Is(err, services.ErrDuplicateEmail),
			errors.Is(err, services.ErrConflict),
			errors.Is(err, services.ErrInsufficientStock):
			code = fiber.StatusConflict
		case errors.Is(err, services.ErrUpstream),
			errors.Is(err, address.ErrUnavailable),
			errors.Is(err, payment.ErrGatewayDisabled):
			code = fiber.StatusBadGateway
		case errors.Is(err, context.DeadlineExceeded):
			code = fiber.StatusGatewayTimeout
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			)
			if code == fiber.StatusInternalServerError {
				msg = "internal server error"
			}
		}

		return respond(c, code, msg, data)
	}
}
