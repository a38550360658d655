package models

// StartVerificationRequest begins a phone login.
type StartVerificationRequest struct {
	Phone string `json:"phone"`
}

// ConfirmCodeRequest submits the SMS code for a pending verification.
type ConfirmCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// RegisterMembershipRequest joins a program by its public join code.
type RegisterMembershipRequest struct {
	Code string `json:"code"`
}

// CheckinRequest submits a restaurant's secret check-in code.
type CheckinRequest struct {
	Code string `json:"code"`
}

// CreateProgramRequest is the admin payload for a new program template.
type CreateProgramRequest struct {
	Title          string `json:"title"`
	ImageURL       string `json:"image_url"`
	TargetCheckins int    `json:"target_checkins"`
	Reward         string `json:"reward"`
	Code           string `json:"code"`
	CheckinCode    string `json:"checkin_code"`
}
