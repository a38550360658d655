package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
)

var (
	ErrCodeNotFound      = errors.New("no program found for the code provided")
	ErrMalformedTemplate = errors.New("program template is malformed")
)

// RegistrationService joins a user to a program: it resolves the public
// join code to a program template and materializes a membership from it.
type RegistrationService struct {
	programRepo    repositories.ProgramRepository
	membershipRepo repositories.MembershipRepository
}

func NewRegistrationService(programRepo repositories.ProgramRepository, membershipRepo repositories.MembershipRepository) *RegistrationService {
	return &RegistrationService{
		programRepo:    programRepo,
		membershipRepo: membershipRepo,
	}
}

// FindAndRegister looks up a program by join code and creates a fresh
// membership for the phone number. Registering counts as the first
// check-in, so the new membership starts at 1. Registering the same
// code twice creates a second, independently tracked membership.
func (s *RegistrationService) FindAndRegister(ctx context.Context, phone, code string) (*models.Membership, error) {
	program, err := s.programRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrProgramNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	if err := validateTemplate(program); err != nil {
		// Detail stays in the logs; callers get a generic failure.
		slog.Error("Program template missing required fields",
			slog.String("type", "error"),
			slog.String("program_id", program.ID),
			slog.Any("error", err))
		return nil, ErrMalformedTemplate
	}

	now := time.Now()
	membership := &models.Membership{
		ID:              uuid.NewString(),
		Title:           program.Title,
		ImageURL:        program.ImageURL,
		Reward:          program.Reward,
		Phone:           phone,
		CurrentCheckins: 1,
		TargetCheckins:  program.TargetCheckins,
		Status:          models.MembershipStatusInProgress,
		LastCheckin:     now,
		ProgramID:       program.ID,
	}

	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}

	slog.Info("Membership registered",
		slog.String("type", "db"),
		slog.String("operation", "FindAndRegister"),
		slog.String("membership_id", membership.ID),
		slog.String("program_id", program.ID))

	return membership, nil
}

func validateTemplate(program *models.Program) error {
	switch {
	case program.Title == "":
		return errors.New("missing title")
	case program.Reward == "":
		return errors.New("missing reward")
	case program.CheckinCode == "":
		return errors.New("missing checkin code")
	case program.TargetCheckins < 1:
		return errors.New("target check-ins below 1")
	}
	return nil
}
