package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stampcard-app/stampcard/stampcard/auth"
	"github.com/stampcard-app/stampcard/stampcard/database"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
	"github.com/stampcard-app/stampcard/stampcard/services"
)

// WebApp holds the dependencies shared by all HTTP handlers.
type WebApp struct {
	DB             *database.DB
	Session        *auth.Session
	ProgramRepo    repositories.ProgramRepository
	MembershipRepo repositories.MembershipRepository
	Registration   *services.RegistrationService
	Checkin        *services.CheckinService
	Redemption     *services.RedemptionService
	Search         *services.SearchService
	Spaces         *services.SpacesService
	AdminPhones    map[string]bool
	Version        string
	Commit         string
}

// CurrentUser returns the authenticated user stored by the auth
// middleware, or nil.
func (w *WebApp) CurrentUser(c *fiber.Ctx) *auth.UserRef {
	user, _ := c.Locals("user").(*auth.UserRef)
	return user
}

// IsAdmin reports whether the phone is on the admin allowlist.
func (w *WebApp) IsAdmin(phone string) bool {
	return w.AdminPhones[phone]
}

// HealthCheck reports service and database health.
func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := "ok"
		dbStatus := "ok"
		if err := webApp.DB.Ping(c.Context()); err != nil {
			status = "degraded"
			dbStatus = err.Error()
		}

		return c.JSON(fiber.Map{
			"status":   status,
			"database": dbStatus,
			"version":  webApp.Version,
			"commit":   webApp.Commit,
		})
	}
}
