package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"go.uber.org/zap"
)

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrValidation):
			code = fiber.StatusBadRequest
		case errors.Is(err, domain.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, domain.ErrMigrationRequired):
			code = fiber.StatusServiceUnavailable
		default:
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
		}

		logger.Error("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		// Store and gateway failures land here with driver details in the
		// message; those stay in the log only.
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "internal server error"
		}

		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}
}
