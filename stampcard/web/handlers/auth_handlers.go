package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/stampcard-app/stampcard/stampcard/auth"
	webmodels "github.com/stampcard-app/stampcard/stampcard/web/models"
	"github.com/stampcard-app/stampcard/stampcard/web/utils"
)

// StartVerification handles POST /api/v1/auth/start
func StartVerification(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.StartVerificationRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}
		if req.Phone == "" {
			return utils.SendBadRequest(c, "Phone number is required", nil)
		}

		if err := webApp.Session.StartVerification(c.Context(), req.Phone); err != nil {
			if errors.Is(err, auth.ErrVerificationFailed) {
				return utils.SendUnprocessableEntity(c, "Could not send a verification code to this number", nil)
			}
			slog.Error("Verification start failed",
				slog.String("type", "auth"),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Something went wrong, please try again")
		}

		return utils.SendSuccess(c, nil, "Verification code sent")
	}
}

// ConfirmCode handles POST /api/v1/auth/verify
func ConfirmCode(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.ConfirmCodeRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}
		if req.Phone == "" || req.Code == "" {
			return utils.SendBadRequest(c, "Phone number and code are required", nil)
		}

		user, token, err := webApp.Session.ConfirmCode(c.Context(), req.Phone, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrNoPendingVerification):
				return utils.SendBadRequest(c, "No verification in progress for this number", nil)
			case errors.Is(err, auth.ErrInvalidCode):
				return utils.SendUnauthorized(c, "The code is not correct or has expired")
			default:
				slog.Error("Code confirmation failed",
					slog.String("type", "auth"),
					slog.Any("error", err))
				return utils.SendInternalServerError(c, "Something went wrong, please try again")
			}
		}

		view := webmodels.AuthView{Token: token}
		view.User.ID = user.ID
		view.User.Phone = user.Phone

		return utils.SendSuccess(c, view, "Signed in")
	}
}

// SignOut handles POST /api/v1/auth/signout. Idempotent.
func SignOut(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		webApp.Session.SignOut()
		return utils.SendSuccess(c, nil, "Signed out")
	}
}
