package models

import (
	"time"

	dbmodels "github.com/stampcard-app/stampcard/stampcard/database/models"
)

// APIResponse represents a standard API response structure
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents an API error response
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func NewSuccessResponse(data interface{}, message string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func NewErrorResponse(code, message string, details map[string]string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	}
}

// MembershipView is the wire representation of a membership.
type MembershipView struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ImageURL        string    `json:"image_url"`
	Reward          string    `json:"reward"`
	CurrentCheckins int       `json:"current_checkins"`
	TargetCheckins  int       `json:"target_checkins"`
	Status          string    `json:"status"`
	LastCheckin     time.Time `json:"last_checkin"`
	ProgramID       string    `json:"program_id"`
}

func NewMembershipView(m *dbmodels.Membership) MembershipView {
	return MembershipView{
		ID:              m.ID,
		Title:           m.Title,
		ImageURL:        m.ImageURL,
		Reward:          m.Reward,
		CurrentCheckins: m.CurrentCheckins,
		TargetCheckins:  m.TargetCheckins,
		Status:          m.Status,
		LastCheckin:     m.LastCheckin,
		ProgramID:       m.ProgramID,
	}
}

func NewMembershipViews(memberships []*dbmodels.Membership) []MembershipView {
	views := make([]MembershipView, 0, len(memberships))
	for _, m := range memberships {
		views = append(views, NewMembershipView(m))
	}
	return views
}

// ProgramView is the public wire representation of a program.
// The secret check-in code is deliberately absent.
type ProgramView struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	ImageURL       string `json:"image_url"`
	TargetCheckins int    `json:"target_checkins"`
	Reward         string `json:"reward"`
	Code           string `json:"code"`
}

func NewProgramView(p *dbmodels.Program) ProgramView {
	return ProgramView{
		ID:             p.ID,
		Title:          p.Title,
		ImageURL:       p.ImageURL,
		TargetCheckins: p.TargetCheckins,
		Reward:         p.Reward,
		Code:           p.Code,
	}
}

func NewProgramViews(programs []*dbmodels.Program) []ProgramView {
	views := make([]ProgramView, 0, len(programs))
	for _, p := range programs {
		views = append(views, NewProgramView(p))
	}
	return views
}

// CheckinView reports a check-in outcome to the client.
type CheckinView struct {
	Membership    MembershipView `json:"membership"`
	JustCompleted bool           `json:"just_completed"`
}

// AuthView is returned after a successful code confirmation.
type AuthView struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Phone string `json:"phone"`
	} `json:"user"`
}
