package auth

import (
	"context"
	"errors"
)

var (
	// ErrVerificationFailed covers provider rejections when starting a
	// verification (bad number, channel error).
	ErrVerificationFailed = errors.New("verification request failed")
	// ErrInvalidCode is returned when a submitted code does not match
	// or the pending verification expired.
	ErrInvalidCode = errors.New("invalid verification code")
)

// UserRef identifies an authenticated user: a stable identifier plus
// the verified phone number.
type UserRef struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
}

// Verifier abstracts the phone verification provider. Start sends a
// code to the given number and returns an opaque handle; Check submits
// the user's code against that handle.
type Verifier interface {
	Start(ctx context.Context, phone string) (handle string, err error)
	Check(ctx context.Context, handle, phone, code string) (*UserRef, error)
}
