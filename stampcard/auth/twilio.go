package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://verify.twilio.com"

// TwilioVerifier drives the Twilio Verify v2 API. Start creates a
// Verification for the number; Check posts a VerificationCheck and
// accepts only an approved, valid result.
type TwilioVerifier struct {
	baseURL    string
	accountSID string
	authToken  string
	serviceSID string
	client     *http.Client
}

func NewTwilioVerifier(baseURL, accountSID, authToken, serviceSID string) *TwilioVerifier {
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	return &TwilioVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		serviceSID: serviceSID,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type twilioVerification struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	Valid  bool   `json:"valid"`
}

func (v *TwilioVerifier) Start(ctx context.Context, phone string) (string, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Channel", "sms")

	endpoint := fmt.Sprintf("%s/v2/Services/%s/Verifications", v.baseURL, v.serviceSID)
	var result twilioVerification
	if err := v.post(ctx, endpoint, form, &result); err != nil {
		slog.Warn("Verification start rejected",
			slog.String("type", "auth"),
			slog.String("phone", phone),
			slog.Any("error", err))
		return "", ErrVerificationFailed
	}

	return result.SID, nil
}

func (v *TwilioVerifier) Check(ctx context.Context, handle, phone, code string) (*UserRef, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Code", code)

	endpoint := fmt.Sprintf("%s/v2/Services/%s/VerificationCheck", v.baseURL, v.serviceSID)
	var result twilioVerification
	if err := v.post(ctx, endpoint, form, &result); err != nil {
		return nil, ErrInvalidCode
	}

	// Twilio reports a wrong code as valid=false, not as an error.
	if result.Status != "approved" || !result.Valid {
		return nil, ErrInvalidCode
	}

	return &UserRef{ID: userIDForPhone(phone), Phone: phone}, nil
}

func (v *TwilioVerifier) post(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(v.accountSID, v.authToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("verify API returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode verify response: %w", err)
	}
	return nil
}
