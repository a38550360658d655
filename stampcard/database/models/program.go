package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Program is the restaurant-defined loyalty program template.
// Memberships are instantiated from it at registration time; the app
// treats programs as immutable after creation.
type Program struct {
	bun.BaseModel `bun:"table:programs,alias:p"`

	ID             string `bun:"id,pk"`
	Title          string `bun:"title,notnull"`
	ImageURL       string `bun:"image_url"`
	TargetCheckins int    `bun:"target_checkins,notnull"`
	Reward         string `bun:"reward,notnull"`

	// Code is the public join code; CheckinCode is the secret the
	// restaurant hands out to record a visit. Code uniqueness is a
	// data-entry assumption, not enforced by the schema.
	Code        string `bun:"code,notnull"`
	CheckinCode string `bun:"checkin_code,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
