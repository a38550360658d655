package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stampcard-app/stampcard/stampcard/logger"
)

// LoggingMiddleware logs HTTP requests in a structured format
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		logger.LogRequest(c.Method(), c.Path(), c.IP(),
			c.Response().StatusCode(), time.Since(start))

		return err
	}
}

// CustomErrorHandler converts unhandled fiber errors into the standard
// JSON envelope.
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	if code >= 500 {
		slog.Error("Unhandled request error",
			slog.String("type", "api"),
			slog.String("path", c.Path()),
			slog.Any("error", err))
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    "INTERNAL_SERVER_ERROR",
			"message": err.Error(),
		},
	})
}
