package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories/mock"
)

func TestRedemptionService_Redeem(t *testing.T) {
	ctrl := gomock.NewController(t)
	memberships := mock.NewMockMembershipRepository(ctrl)
	memberships.EXPECT().
		Delete(gomock.Any(), "mem-1").
		Return(nil)

	s := NewRedemptionService(memberships)
	if err := s.Redeem(context.Background(), "mem-1"); err != nil {
		t.Fatalf("Redeem() unexpected error = %v", err)
	}
}

func TestRedemptionService_Redeem_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	memberships := mock.NewMockMembershipRepository(ctrl)
	memberships.EXPECT().
		Delete(gomock.Any(), "missing").
		Return(repositories.ErrMembershipNotFound)

	s := NewRedemptionService(memberships)
	err := s.Redeem(context.Background(), "missing")
	if !errors.Is(err, repositories.ErrMembershipNotFound) {
		t.Fatalf("Redeem() error = %v, want %v", err, repositories.ErrMembershipNotFound)
	}
}
