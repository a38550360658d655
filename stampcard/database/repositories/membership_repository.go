package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/uptrace/bun"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrTargetReached      = errors.New("membership already at target check-ins")
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	GetByID(ctx context.Context, id string) (*models.Membership, error)
	GetByPhone(ctx context.Context, phone string) ([]*models.Membership, error)
	Delete(ctx context.Context, id string) error
	AdvanceCheckin(ctx context.Context, id string) (*models.Membership, bool, error)
}

type membershipRepository struct {
	db *bun.DB
}

func NewMembershipRepository(db *bun.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	membership.CreatedAt = time.Now()
	membership.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(membership).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *membershipRepository) GetByID(ctx context.Context, id string) (*models.Membership, error) {
	membership := new(models.Membership)
	err := r.db.NewSelect().
		Model(membership).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		slog.Error("Database error when getting membership",
			slog.String("type", "db"),
			slog.String("operation", "GetByID"),
			slog.String("membership_id", id),
			slog.Any("error", err))
		return nil, err
	}

	return membership, nil
}

func (r *membershipRepository) GetByPhone(ctx context.Context, phone string) ([]*models.Membership, error) {
	var memberships []*models.Membership
	err := r.db.NewSelect().
		Model(&memberships).
		Where("phone = ?", phone).
		Order("last_checkin DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *membershipRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Membership)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrMembershipNotFound
	}
	return err
}

// AdvanceCheckin atomically increments the check-in counter and flips
// the status to COMPLETED when the counter reaches the target. The row
// is locked for the duration of the transaction so concurrent attempts
// serialize; the counter never exceeds the target. Returns the updated
// membership and whether this call pushed it to completion.
func (r *membershipRepository) AdvanceCheckin(ctx context.Context, id string) (*models.Membership, bool, error) {
	membership := new(models.Membership)
	justCompleted := false

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(membership).
			Where("id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMembershipNotFound
			}
			return err
		}

		if membership.CurrentCheckins >= membership.TargetCheckins {
			return ErrTargetReached
		}

		now := time.Now()
		membership.CurrentCheckins++
		membership.LastCheckin = now
		membership.UpdatedAt = now
		if membership.CurrentCheckins >= membership.TargetCheckins {
			membership.Status = models.MembershipStatusCompleted
			justCompleted = true
		}

		_, err = tx.NewUpdate().
			Model(membership).
			Column("current_checkins", "status", "last_checkin", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})

	if err != nil {
		return nil, false, err
	}
	return membership, justCompleted, nil
}
