package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
)

var (
	ErrAlreadyComplete    = errors.New("maximum check-ins reached")
	ErrProgramNotFound    = errors.New("no program found for this membership")
	ErrInvalidCheckinCode = errors.New("check-in code is not correct")
)

// CheckinResult reports the outcome of a successful check-in.
// JustCompleted is true only on the call that pushes the counter to
// the target.
type CheckinResult struct {
	Membership    *models.Membership
	JustCompleted bool
	Message       string
}

// CheckinService validates a submitted check-in code against the
// program's secret and advances the membership counter atomically.
type CheckinService struct {
	programRepo    repositories.ProgramRepository
	membershipRepo repositories.MembershipRepository
}

func NewCheckinService(programRepo repositories.ProgramRepository, membershipRepo repositories.MembershipRepository) *CheckinService {
	return &CheckinService{
		programRepo:    programRepo,
		membershipRepo: membershipRepo,
	}
}

// Checkin runs the check-in state transition. The validation steps are
// read-only and happen outside the transaction; the counter mutation
// itself is transactional, so a stale precondition can at worst reject
// slightly early or late, never corrupt the counter.
func (s *CheckinService) Checkin(ctx context.Context, code, phone string, membership *models.Membership) (*CheckinResult, error) {
	if membership.CurrentCheckins >= membership.TargetCheckins {
		return nil, ErrAlreadyComplete
	}

	program, err := s.programRepo.GetByID(ctx, membership.ProgramID)
	if err != nil {
		if errors.Is(err, repositories.ErrProgramNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	if program.CheckinCode != code {
		return nil, ErrInvalidCheckinCode
	}

	updated, justCompleted, err := s.membershipRepo.AdvanceCheckin(ctx, membership.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrTargetReached) {
			// Lost a race with a concurrent check-in that completed the card.
			return nil, ErrAlreadyComplete
		}
		return nil, err
	}

	slog.Info("Check-in recorded",
		slog.String("type", "db"),
		slog.String("operation", "Checkin"),
		slog.String("membership_id", updated.ID),
		slog.Int("current_checkins", updated.CurrentCheckins),
		slog.Int("target_checkins", updated.TargetCheckins),
		slog.Bool("completed", justCompleted))

	message := "Check-in successful."
	if justCompleted {
		message = "Check-in successful and completed."
	}

	return &CheckinResult{
		Membership:    updated,
		JustCompleted: justCompleted,
		Message:       message,
	}, nil
}
