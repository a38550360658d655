//go:build integration

package repositories_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stampcard-app/stampcard/stampcard/database"
	"github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	port, _ := strconv.Atoi(envOr("TEST_DB_PORT", "5432"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		Database: envOr("TEST_DB_NAME", "stampcard_test"),
		PoolSize: 10,
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := db.InitializeSchema(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}

func seedMembership(t *testing.T, repo repositories.MembershipRepository, current, target int) *models.Membership {
	t.Helper()

	status := models.MembershipStatusInProgress
	if current >= target {
		status = models.MembershipStatusCompleted
	}
	membership := &models.Membership{
		ID:              uuid.NewString(),
		Title:           "Noodle House",
		Reward:          "Free ramen",
		Phone:           "+14155550100",
		CurrentCheckins: current,
		TargetCheckins:  target,
		Status:          status,
		LastCheckin:     time.Now().Add(-time.Hour),
		ProgramID:       uuid.NewString(),
	}
	if err := repo.Create(context.Background(), membership); err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}
	return membership
}

func TestMembershipRepository_AdvanceCheckin(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewMembershipRepository(db.BunDB())
	ctx := context.Background()

	t.Run("increments below target", func(t *testing.T) {
		m := seedMembership(t, repo, 3, 8)

		updated, justCompleted, err := repo.AdvanceCheckin(ctx, m.ID)
		if err != nil {
			t.Fatalf("AdvanceCheckin() error = %v", err)
		}
		if updated.CurrentCheckins != 4 {
			t.Errorf("CurrentCheckins = %d, want 4", updated.CurrentCheckins)
		}
		if justCompleted {
			t.Error("justCompleted = true below target")
		}
		if updated.Status != models.MembershipStatusInProgress {
			t.Errorf("Status = %q, want %q", updated.Status, models.MembershipStatusInProgress)
		}
		if !updated.LastCheckin.After(m.LastCheckin) {
			t.Error("LastCheckin not advanced")
		}
	})

	t.Run("final increment flips to completed once", func(t *testing.T) {
		m := seedMembership(t, repo, 7, 8)

		updated, justCompleted, err := repo.AdvanceCheckin(ctx, m.ID)
		if err != nil {
			t.Fatalf("AdvanceCheckin() error = %v", err)
		}
		if !justCompleted {
			t.Error("justCompleted = false on the completing call")
		}
		if updated.CurrentCheckins != 8 || updated.Status != models.MembershipStatusCompleted {
			t.Errorf("got %d/%s, want 8/%s", updated.CurrentCheckins, updated.Status, models.MembershipStatusCompleted)
		}

		// A further attempt is refused and the row is untouched.
		_, _, err = repo.AdvanceCheckin(ctx, m.ID)
		if !errors.Is(err, repositories.ErrTargetReached) {
			t.Fatalf("AdvanceCheckin() at target: error = %v, want %v", err, repositories.ErrTargetReached)
		}
		stored, err := repo.GetByID(ctx, m.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.CurrentCheckins != 8 || stored.Status != models.MembershipStatusCompleted {
			t.Errorf("refused attempt mutated the row: %d/%s", stored.CurrentCheckins, stored.Status)
		}
	})

	t.Run("missing membership", func(t *testing.T) {
		_, _, err := repo.AdvanceCheckin(ctx, uuid.NewString())
		if !errors.Is(err, repositories.ErrMembershipNotFound) {
			t.Fatalf("AdvanceCheckin() error = %v, want %v", err, repositories.ErrMembershipNotFound)
		}
	})
}

func TestMembershipRepository_AdvanceCheckin_Concurrent(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewMembershipRepository(db.BunDB())
	ctx := context.Background()

	t.Run("two concurrent check-ins net exactly two", func(t *testing.T) {
		m := seedMembership(t, repo, 0, 8)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, errs[i] = repo.AdvanceCheckin(ctx, m.ID)
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("AdvanceCheckin() goroutine %d error = %v", i, err)
			}
		}

		stored, err := repo.GetByID(ctx, m.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.CurrentCheckins != 2 {
			t.Errorf("CurrentCheckins = %d, want 2", stored.CurrentCheckins)
		}
	})

	t.Run("counter never exceeds target under contention", func(t *testing.T) {
		m := seedMembership(t, repo, 7, 8)

		const attempts = 5
		var wg sync.WaitGroup
		completions := make(chan bool, attempts)
		refusals := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, justCompleted, err := repo.AdvanceCheckin(ctx, m.ID)
				if err != nil {
					refusals <- err
					return
				}
				completions <- justCompleted
			}()
		}
		wg.Wait()
		close(completions)
		close(refusals)

		var wins int
		for justCompleted := range completions {
			wins++
			if !justCompleted {
				t.Error("the single winning call must report justCompleted")
			}
		}
		if wins != 1 {
			t.Errorf("%d calls succeeded, want exactly 1", wins)
		}
		for err := range refusals {
			if !errors.Is(err, repositories.ErrTargetReached) {
				t.Errorf("losing call error = %v, want %v", err, repositories.ErrTargetReached)
			}
		}

		stored, err := repo.GetByID(ctx, m.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.CurrentCheckins != stored.TargetCheckins {
			t.Errorf("CurrentCheckins = %d, want %d", stored.CurrentCheckins, stored.TargetCheckins)
		}
		if stored.Status != models.MembershipStatusCompleted {
			t.Errorf("Status = %q, want %q", stored.Status, models.MembershipStatusCompleted)
		}
	})
}
