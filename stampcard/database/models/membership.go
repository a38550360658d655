package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MembershipStatusInProgress = "IN_PROGRESS"
	MembershipStatusCompleted  = "COMPLETED"
)

// Membership is one user's progress card for one program. Display
// fields are denormalized from the program at join time and are not
// kept in sync if the template later changes.
type Membership struct {
	bun.BaseModel `bun:"table:memberships,alias:m"`

	ID       string `bun:"id,pk"`
	Title    string `bun:"title,notnull"`
	ImageURL string `bun:"image_url"`
	Reward   string `bun:"reward,notnull"`

	Phone string `bun:"phone,notnull"`

	CurrentCheckins int    `bun:"current_checkins,notnull,default:0"`
	TargetCheckins  int    `bun:"target_checkins,notnull"`
	Status          string `bun:"status,notnull"`

	LastCheckin time.Time `bun:"last_checkin,notnull"`
	ProgramID   string    `bun:"program_id,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Completed reports whether the membership has reached its milestone.
func (m *Membership) Completed() bool {
	return m.Status == MembershipStatusCompleted
}
