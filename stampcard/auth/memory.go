package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"
)

const (
	memoryCodeLength = 6
	memoryCodeTTL    = 5 * time.Minute
)

type pendingCode struct {
	phone     string
	code      string
	expiresAt time.Time
}

// MemoryVerifier keeps pending verifications in process and logs the
// generated code instead of sending SMS. Used in development and tests.
type MemoryVerifier struct {
	mu      sync.Mutex
	pending map[string]pendingCode
}

func NewMemoryVerifier() *MemoryVerifier {
	return &MemoryVerifier{pending: make(map[string]pendingCode)}
}

func (v *MemoryVerifier) Start(_ context.Context, phone string) (string, error) {
	if phone == "" {
		return "", ErrVerificationFailed
	}

	code := generateCode(memoryCodeLength)
	handle := newHandle()

	v.mu.Lock()
	v.pending[handle] = pendingCode{
		phone:     phone,
		code:      code,
		expiresAt: time.Now().Add(memoryCodeTTL),
	}
	v.mu.Unlock()

	slog.Info("Verification code issued",
		slog.String("type", "auth"),
		slog.String("phone", phone),
		slog.String("code", code))

	return handle, nil
}

func (v *MemoryVerifier) Check(_ context.Context, handle, phone, code string) (*UserRef, error) {
	v.mu.Lock()
	entry, ok := v.pending[handle]
	if ok {
		delete(v.pending, handle)
	}
	v.mu.Unlock()

	if !ok || entry.phone != phone {
		return nil, ErrInvalidCode
	}
	if time.Now().After(entry.expiresAt) {
		return nil, ErrInvalidCode
	}
	if entry.code != code {
		return nil, ErrInvalidCode
	}

	return &UserRef{ID: userIDForPhone(phone), Phone: phone}, nil
}

func generateCode(length int) string {
	code := ""
	for i := 0; i < length; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		code += n.String()
	}
	return code
}

func newHandle() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// userIDForPhone derives a stable user identifier from the verified
// phone number, matching the provider contract of a stable ID per user.
func userIDForPhone(phone string) string {
	sum := sha256.Sum256([]byte(phone))
	return fmt.Sprintf("u_%x", sum[:12])
}
