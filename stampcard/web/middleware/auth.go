package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stampcard-app/stampcard/stampcard/web/handlers"
	"github.com/stampcard-app/stampcard/stampcard/web/utils"
)

// AuthRequired ensures the request carries a valid bearer token and
// stores the resolved user in the request context.
func AuthRequired(webApp *handlers.WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return utils.SendUnauthorized(c, "Authentication required")
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return utils.SendUnauthorized(c, "Authentication required")
		}

		user, err := webApp.Session.VerifyToken(token)
		if err != nil {
			slog.Debug("Auth required: invalid token",
				slog.String("type", "auth"),
				slog.String("error", err.Error()))
			return utils.SendUnauthorized(c, "Session is invalid or expired")
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// AdminRequired ensures the authenticated user is on the admin
// allowlist. Must run after AuthRequired.
func AdminRequired(webApp *handlers.WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := webApp.CurrentUser(c)
		if user == nil {
			slog.Warn("Admin required: no user in context",
				slog.String("type", "auth"))
			return utils.SendForbidden(c, "Access denied")
		}

		if !webApp.IsAdmin(user.Phone) {
			slog.Warn("Admin required: user lacks admin privileges",
				slog.String("type", "auth"),
				slog.String("user_id", user.ID))
			return utils.SendForbidden(c, "Admin access required")
		}

		return c.Next()
	}
}
