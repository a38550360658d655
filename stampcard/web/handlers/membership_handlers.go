package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
	"github.com/stampcard-app/stampcard/stampcard/services"
	webmodels "github.com/stampcard-app/stampcard/stampcard/web/models"
	"github.com/stampcard-app/stampcard/stampcard/web/utils"
)

// ListMemberships handles GET /api/v1/memberships
func ListMemberships(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := webApp.CurrentUser(c)

		memberships, err := webApp.MembershipRepo.GetByPhone(c.Context(), user.Phone)
		if err != nil {
			slog.Error("Failed to list memberships",
				slog.String("type", "db"),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Could not load memberships")
		}

		return utils.SendSuccess(c, webmodels.NewMembershipViews(memberships), "")
	}
}

// RegisterMembership handles POST /api/v1/memberships
func RegisterMembership(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := webApp.CurrentUser(c)

		var req webmodels.RegisterMembershipRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}
		if req.Code == "" {
			return utils.SendBadRequest(c, "Join code is required", nil)
		}

		membership, err := webApp.Registration.FindAndRegister(c.Context(), user.Phone, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrCodeNotFound):
				return utils.SendNotFound(c, "No matching restaurant found for the code provided")
			case errors.Is(err, services.ErrMalformedTemplate):
				return utils.SendUnprocessableEntity(c, "This restaurant's program is not set up correctly", nil)
			default:
				slog.Error("Registration failed",
					slog.String("type", "db"),
					slog.Any("error", err))
				return utils.SendInternalServerError(c, "Something went wrong, please try again")
			}
		}

		return utils.SendCreated(c, webmodels.NewMembershipView(membership), "Registered successfully")
	}
}

// Checkin handles POST /api/v1/memberships/:id/checkin
func Checkin(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := webApp.CurrentUser(c)
		membershipID := c.Params("id")

		var req webmodels.CheckinRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}
		if req.Code == "" {
			return utils.SendBadRequest(c, "Check-in code is required", nil)
		}

		membership, err := webApp.MembershipRepo.GetByID(c.Context(), membershipID)
		if err != nil {
			if errors.Is(err, repositories.ErrMembershipNotFound) {
				return utils.SendNotFound(c, "Membership not found")
			}
			return utils.SendInternalServerError(c, "Could not load membership")
		}
		if membership.Phone != user.Phone {
			return utils.SendForbidden(c, "This membership belongs to another user")
		}

		result, err := webApp.Checkin.Checkin(c.Context(), req.Code, user.Phone, membership)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrAlreadyComplete):
				return utils.SendConflict(c, "Maximum check-ins reached", nil)
			case errors.Is(err, services.ErrProgramNotFound):
				return utils.SendNotFound(c, "No registered restaurant found")
			case errors.Is(err, services.ErrInvalidCheckinCode):
				return utils.SendUnauthorized(c, "Check-in code is not correct")
			default:
				slog.Error("Check-in failed",
					slog.String("type", "db"),
					slog.Any("error", err))
				return utils.SendInternalServerError(c, "Something went wrong, please try again")
			}
		}

		view := webmodels.CheckinView{
			Membership:    webmodels.NewMembershipView(result.Membership),
			JustCompleted: result.JustCompleted,
		}
		return utils.SendSuccess(c, view, result.Message)
	}
}

// Redeem handles DELETE /api/v1/memberships/:id
func Redeem(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := webApp.CurrentUser(c)
		membershipID := c.Params("id")

		membership, err := webApp.MembershipRepo.GetByID(c.Context(), membershipID)
		if err != nil {
			if errors.Is(err, repositories.ErrMembershipNotFound) {
				return utils.SendNotFound(c, "Membership not found")
			}
			return utils.SendInternalServerError(c, "Could not load membership")
		}
		if membership.Phone != user.Phone {
			return utils.SendForbidden(c, "This membership belongs to another user")
		}

		if err := webApp.Redemption.Redeem(c.Context(), membershipID); err != nil {
			if errors.Is(err, repositories.ErrMembershipNotFound) {
				return utils.SendNotFound(c, "Membership not found")
			}
			slog.Error("Redemption failed",
				slog.String("type", "db"),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Something went wrong, please try again")
		}

		return utils.SendSuccess(c, nil, "Reward redeemed")
	}
}
