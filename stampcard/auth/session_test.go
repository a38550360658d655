package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubVerifier accepts a single fixed code so the full session flow can
// run without a provider.
type stubVerifier struct {
	code     string
	startErr error
}

func (v *stubVerifier) Start(_ context.Context, phone string) (string, error) {
	if v.startErr != nil {
		return "", v.startErr
	}
	return "handle-" + phone, nil
}

func (v *stubVerifier) Check(_ context.Context, handle, phone, code string) (*UserRef, error) {
	if handle != "handle-"+phone || code != v.code {
		return nil, ErrInvalidCode
	}
	return &UserRef{ID: userIDForPhone(phone), Phone: phone}, nil
}

func newTestSession() *Session {
	return NewSession(&stubVerifier{code: "123456"}, "test-secret", time.Hour)
}

func TestSession_VerificationFlow(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()

	if s.IsLoggedIn() {
		t.Fatal("fresh session must not be logged in")
	}

	if err := s.StartVerification(ctx, "+14155550100"); err != nil {
		t.Fatalf("StartVerification() error = %v", err)
	}

	user, token, err := s.ConfirmCode(ctx, "+14155550100", "123456")
	if err != nil {
		t.Fatalf("ConfirmCode() error = %v", err)
	}
	if user.Phone != "+14155550100" {
		t.Errorf("ConfirmCode() phone = %q", user.Phone)
	}
	if token == "" {
		t.Error("ConfirmCode() returned empty token")
	}
	if !s.IsLoggedIn() {
		t.Error("session must be logged in after ConfirmCode")
	}
	if got := s.Current(); got == nil || got.ID != user.ID {
		t.Errorf("Current() = %+v, want %+v", got, user)
	}
}

func TestSession_ConfirmCode_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("no pending verification", func(t *testing.T) {
		s := newTestSession()
		_, _, err := s.ConfirmCode(ctx, "+14155550100", "123456")
		if !errors.Is(err, ErrNoPendingVerification) {
			t.Fatalf("ConfirmCode() error = %v, want %v", err, ErrNoPendingVerification)
		}
	})

	t.Run("phone mismatch", func(t *testing.T) {
		s := newTestSession()
		if err := s.StartVerification(ctx, "+14155550100"); err != nil {
			t.Fatal(err)
		}
		_, _, err := s.ConfirmCode(ctx, "+14155550199", "123456")
		if !errors.Is(err, ErrNoPendingVerification) {
			t.Fatalf("ConfirmCode() error = %v, want %v", err, ErrNoPendingVerification)
		}
	})

	t.Run("wrong code keeps session logged out", func(t *testing.T) {
		s := newTestSession()
		if err := s.StartVerification(ctx, "+14155550100"); err != nil {
			t.Fatal(err)
		}
		_, _, err := s.ConfirmCode(ctx, "+14155550100", "000000")
		if !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("ConfirmCode() error = %v, want %v", err, ErrInvalidCode)
		}
		if s.IsLoggedIn() {
			t.Error("failed confirmation must not log the session in")
		}
	})
}

func TestSession_ConcurrentVerifications(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()

	// Two users mid-login at the same time; neither start may cancel
	// the other's verification.
	if err := s.StartVerification(ctx, "+14155550100"); err != nil {
		t.Fatal(err)
	}
	if err := s.StartVerification(ctx, "+14155550199"); err != nil {
		t.Fatal(err)
	}

	userA, _, err := s.ConfirmCode(ctx, "+14155550100", "123456")
	if err != nil {
		t.Fatalf("ConfirmCode() for first user error = %v", err)
	}
	if userA.Phone != "+14155550100" {
		t.Errorf("first user phone = %q", userA.Phone)
	}

	userB, _, err := s.ConfirmCode(ctx, "+14155550199", "123456")
	if err != nil {
		t.Fatalf("ConfirmCode() for second user error = %v", err)
	}
	if userB.Phone != "+14155550199" {
		t.Errorf("second user phone = %q", userB.Phone)
	}
}

func TestSession_SignOut(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()

	if err := s.StartVerification(ctx, "+14155550100"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.ConfirmCode(ctx, "+14155550100", "123456"); err != nil {
		t.Fatal(err)
	}

	s.SignOut()
	if s.IsLoggedIn() {
		t.Error("SignOut() must clear the session")
	}

	// Idempotent.
	s.SignOut()
	if s.Current() != nil {
		t.Error("Current() must be nil after SignOut")
	}
}

func TestSession_Subscribe(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.StartVerification(ctx, "+14155550100"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.ConfirmCode(ctx, "+14155550100", "123456"); err != nil {
		t.Fatal(err)
	}

	select {
	case user := <-ch:
		if user == nil || user.Phone != "+14155550100" {
			t.Errorf("subscriber got %+v", user)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive login event")
	}

	s.SignOut()
	select {
	case user := <-ch:
		if user != nil {
			t.Errorf("subscriber got %+v on sign-out, want nil", user)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive sign-out event")
	}
}

func TestSession_Tokens(t *testing.T) {
	s := newTestSession()
	user := &UserRef{ID: "u_abc", Phone: "+14155550100"}

	token, err := s.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	got, err := s.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if got.ID != user.ID || got.Phone != user.Phone {
		t.Errorf("VerifyToken() = %+v, want %+v", got, user)
	}

	t.Run("tampered token rejected", func(t *testing.T) {
		if _, err := s.VerifyToken(token + "x"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("foreign secret rejected", func(t *testing.T) {
		other := NewSession(&stubVerifier{code: "123456"}, "other-secret", time.Hour)
		if _, err := other.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		short := NewSession(&stubVerifier{code: "123456"}, "test-secret", -time.Minute)
		tok, err := short.IssueToken(user)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := short.VerifyToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})
}

func TestMemoryVerifier_Failures(t *testing.T) {
	v := NewMemoryVerifier()
	ctx := context.Background()

	if _, err := v.Start(ctx, ""); !errors.Is(err, ErrVerificationFailed) {
		t.Errorf("Start() with empty phone: error = %v, want %v", err, ErrVerificationFailed)
	}

	handle, err := v.Start(ctx, "+14155550100")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := v.Check(ctx, "bogus-handle", "+14155550100", "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("Check() with unknown handle: error = %v, want %v", err, ErrInvalidCode)
	}
	if _, err := v.Check(ctx, handle, "+14155550199", "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("Check() with wrong phone: error = %v, want %v", err, ErrInvalidCode)
	}
	// Handles are single use; even the right code fails after the
	// failed attempt above consumed the entry.
	if _, err := v.Check(ctx, handle, "+14155550100", "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("Check() after consumed handle: error = %v, want %v", err, ErrInvalidCode)
	}
}

func TestUserIDForPhone_Stable(t *testing.T) {
	a := userIDForPhone("+14155550100")
	b := userIDForPhone("+14155550100")
	if a != b {
		t.Errorf("userIDForPhone not stable: %q vs %q", a, b)
	}
	if a == userIDForPhone("+14155550199") {
		t.Error("different phones must map to different IDs")
	}
}
