package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrNoPendingVerification = errors.New("no verification in progress")
	ErrInvalidToken          = errors.New("invalid session token")
)

const defaultSessionTTL = 24 * time.Hour

type pendingVerification struct {
	phone     string
	handle    string
	startedAt time.Time
}

// Session is the process-wide identity session, constructed explicitly
// and passed to the layers that need authentication state. It tracks
// in-flight phone verifications keyed by number so concurrent logins
// don't interfere, the current user, and a set of subscribers notified
// on every state change (nil on sign-out).
type Session struct {
	verifier Verifier
	secret   []byte
	ttl      time.Duration

	mu          sync.RWMutex
	pending     map[string]*pendingVerification
	current     *UserRef
	subscribers map[int]chan *UserRef
	nextSubID   int
}

func NewSession(verifier Verifier, secret string, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Session{
		verifier:    verifier,
		secret:      []byte(secret),
		ttl:         ttl,
		pending:     make(map[string]*pendingVerification),
		subscribers: make(map[int]chan *UserRef),
	}
}

// StartVerification asks the provider to send a code to the number and
// keeps the returned handle for the subsequent ConfirmCode call.
func (s *Session) StartVerification(ctx context.Context, phone string) error {
	handle, err := s.verifier.Start(ctx, phone)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending[phone] = &pendingVerification{phone: phone, handle: handle, startedAt: time.Now()}
	s.mu.Unlock()

	return nil
}

// ConfirmCode checks the submitted code against the pending
// verification. On success the session holds the authenticated user and
// a signed token is returned for API use.
func (s *Session) ConfirmCode(ctx context.Context, phone, code string) (*UserRef, string, error) {
	s.mu.RLock()
	pending := s.pending[phone]
	s.mu.RUnlock()

	if pending == nil {
		return nil, "", ErrNoPendingVerification
	}

	user, err := s.verifier.Check(ctx, pending.handle, phone, code)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	delete(s.pending, phone)
	s.current = user
	s.mu.Unlock()

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}

	slog.Info("User authenticated",
		slog.String("type", "auth"),
		slog.String("user_id", user.ID))

	s.notify(user)
	return user, token, nil
}

// SignOut clears the current user. Idempotent; subscribers receive
// nil. Pending verifications for other numbers are left alone.
func (s *Session) SignOut() {
	s.mu.Lock()
	wasLoggedIn := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if wasLoggedIn {
		s.notify(nil)
	}
}

func (s *Session) Current() *UserRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// IsLoggedIn is true exactly when a user reference is held.
func (s *Session) IsLoggedIn() bool {
	return s.Current() != nil
}

// Subscribe registers for auth state changes. The returned cancel func
// must be called when the consumer goes away.
func (s *Session) Subscribe() (<-chan *UserRef, func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan *UserRef, 4)
	s.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) notify(user *UserRef) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- user:
		default:
			// slow subscriber, drop the update
		}
	}
}

type tokenPayload struct {
	User      UserRef   `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken signs a UserRef into a bearer token using HMAC-SHA256.
func (s *Session) IssueToken(user *UserRef) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("session secret not configured")
	}

	payload := tokenPayload{User: *user, ExpiresAt: time.Now().Add(s.ttl)}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token: %w", err)
	}

	h := hmac.New(sha256.New, s.secret)
	h.Write(data)
	signature := h.Sum(nil)

	combined := append(data, signature...)
	return base64.URLEncoding.EncodeToString(combined), nil
}

// VerifyToken validates a bearer token and returns the embedded user.
func (s *Session) VerifyToken(token string) (*UserRef, error) {
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("session secret not configured")
	}

	combined, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if len(combined) < sha256.Size {
		return nil, ErrInvalidToken
	}

	data := combined[:len(combined)-sha256.Size]
	receivedSignature := combined[len(combined)-sha256.Size:]

	h := hmac.New(sha256.New, s.secret)
	h.Write(data)
	if !hmac.Equal(receivedSignature, h.Sum(nil)) {
		return nil, ErrInvalidToken
	}

	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrInvalidToken
	}

	if time.Now().After(payload.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	return &payload.User, nil
}
