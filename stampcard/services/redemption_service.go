package services

import (
	"context"
	"log/slog"

	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
)

// RedemptionService deletes a membership once its reward is claimed.
// Deletion is the terminal event of a membership's lifecycle. No
// COMPLETED check happens here; callers are expected to only expose
// redemption for completed cards.
type RedemptionService struct {
	membershipRepo repositories.MembershipRepository
}

func NewRedemptionService(membershipRepo repositories.MembershipRepository) *RedemptionService {
	return &RedemptionService{membershipRepo: membershipRepo}
}

func (s *RedemptionService) Redeem(ctx context.Context, membershipID string) error {
	if err := s.membershipRepo.Delete(ctx, membershipID); err != nil {
		return err
	}

	slog.Info("Membership redeemed",
		slog.String("type", "db"),
		slog.String("operation", "Redeem"),
		slog.String("membership_id", membershipID))

	return nil
}
