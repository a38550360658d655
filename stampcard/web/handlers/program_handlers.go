package handlers

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	dbmodels "github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
	webmodels "github.com/stampcard-app/stampcard/stampcard/web/models"
	"github.com/stampcard-app/stampcard/stampcard/web/utils"
)

// SearchPrograms handles GET /api/v1/programs/search
func SearchPrograms(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")

		programs, err := webApp.Search.SearchPrograms(c.Context(), query)
		if err != nil {
			slog.Error("Program search failed",
				slog.String("type", "db"),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Could not search programs")
		}

		return utils.SendSuccess(c, webmodels.NewProgramViews(programs), "")
	}
}

// ProgramsCreate handles POST /admin/programs
func ProgramsCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.CreateProgramRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		details := map[string]string{}
		if req.Title == "" {
			details["title"] = "required"
		}
		if req.Reward == "" {
			details["reward"] = "required"
		}
		if req.Code == "" {
			details["code"] = "required"
		}
		if req.CheckinCode == "" {
			details["checkin_code"] = "required"
		}
		if req.TargetCheckins < 1 {
			details["target_checkins"] = "must be at least 1"
		}
		if len(details) > 0 {
			return utils.SendUnprocessableEntity(c, "Invalid program template", details)
		}

		program := &dbmodels.Program{
			ID:             uuid.NewString(),
			Title:          req.Title,
			ImageURL:       req.ImageURL,
			TargetCheckins: req.TargetCheckins,
			Reward:         req.Reward,
			Code:           req.Code,
			CheckinCode:    req.CheckinCode,
		}

		if err := webApp.ProgramRepo.Create(c.Context(), program); err != nil {
			slog.Error("Program creation failed",
				slog.String("type", "db"),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Could not create program")
		}

		return utils.SendCreated(c, webmodels.NewProgramView(program), "Program created")
	}
}

// ProgramsDelete handles DELETE /admin/programs/:id
func ProgramsDelete(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		if err := webApp.ProgramRepo.Delete(c.Context(), id); err != nil {
			if errors.Is(err, repositories.ErrProgramNotFound) {
				return utils.SendNotFound(c, "Program not found")
			}
			return utils.SendInternalServerError(c, "Could not delete program")
		}

		return utils.SendSuccess(c, nil, "Program deleted")
	}
}

// ProgramsUploadImage handles POST /admin/programs/:id/image
func ProgramsUploadImage(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		if _, err := webApp.ProgramRepo.GetByID(c.Context(), id); err != nil {
			if errors.Is(err, repositories.ErrProgramNotFound) {
				return utils.SendNotFound(c, "Program not found")
			}
			return utils.SendInternalServerError(c, "Could not load program")
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			return utils.SendBadRequest(c, "An 'image' file is required", nil)
		}

		file, err := fileHeader.Open()
		if err != nil {
			return utils.SendBadRequest(c, "Could not read uploaded file", nil)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return utils.SendBadRequest(c, "Could not read uploaded file", nil)
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}

		url, err := webApp.Spaces.UploadProgramImage(c.Context(), id, data, contentType)
		if err != nil {
			slog.Error("Image upload failed",
				slog.String("type", "error"),
				slog.String("program_id", id),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Could not store the image")
		}

		if err := webApp.ProgramRepo.UpdateImageURL(c.Context(), id, url); err != nil {
			slog.Error("Failed to store image URL",
				slog.String("type", "db"),
				slog.String("program_id", id),
				slog.Any("error", err))
			return utils.SendInternalServerError(c, "Could not store the image")
		}

		return utils.SendSuccess(c, fiber.Map{"image_url": url}, "Image uploaded")
	}
}
