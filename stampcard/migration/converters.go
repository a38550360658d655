package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stampcard-app/stampcard/stampcard/database/models"
)

// legacyID normalizes a Firestore/Mongo document id to a string key.
// Exports produced by different tooling store _id as either a plain
// string or an ObjectID; anything else gets a fresh UUID.
func legacyID(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		if v != "" {
			return v
		}
	case primitive.ObjectID:
		if !v.IsZero() {
			return v.Hex()
		}
	}
	return uuid.NewString()
}

// legacyTime decodes the lastCheckin field, which the old client wrote
// as a Firestore timestamp (DateTime after export) but very old rows
// carry as an epoch-seconds double.
func legacyTime(raw interface{}, fallback time.Time) time.Time {
	switch v := raw.(type) {
	case primitive.DateTime:
		return v.Time()
	case time.Time:
		return v
	case float64:
		if v > 0 {
			return time.Unix(int64(v), 0)
		}
	case int64:
		if v > 0 {
			return time.Unix(v, 0)
		}
	}
	return fallback
}

func (m *Migrator) convertProgram(mp MongoProgram) (*models.Program, error) {
	code := strings.TrimSpace(mp.Code)
	if mp.Title == "" || code == "" {
		return nil, fmt.Errorf("missing title or code")
	}
	if mp.CheckinCode == "" {
		return nil, fmt.Errorf("missing checkinCode")
	}
	target := mp.TargetCheckins
	if target < 1 {
		target = 1
	}

	now := time.Now()
	return &models.Program{
		ID:             legacyID(mp.ID),
		Title:          mp.Title,
		ImageURL:       mp.Image,
		TargetCheckins: target,
		Reward:         mp.Reward,
		Code:           code,
		CheckinCode:    mp.CheckinCode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (m *Migrator) convertMembership(mm MongoMembership) (*models.Membership, error) {
	if mm.Phone == "" {
		return nil, fmt.Errorf("missing phone")
	}
	if mm.RegisteredID == "" {
		return nil, fmt.Errorf("missing registeredId")
	}

	target := mm.TargetCheckins
	if target < 1 {
		target = 1
	}
	current := mm.CurrentCheckins
	if current < 0 {
		current = 0
	}
	if current > target {
		current = target
	}

	// The old client derived status from the counter when the field was
	// absent; a stored status wins when it is one of the known values.
	status := mm.Status
	if status != models.MembershipStatusInProgress && status != models.MembershipStatusCompleted {
		status = models.MembershipStatusInProgress
		if current >= target {
			status = models.MembershipStatusCompleted
		}
	}

	now := time.Now()
	return &models.Membership{
		ID:              legacyID(mm.ID),
		Title:           mm.Title,
		ImageURL:        mm.Image,
		Reward:          mm.Reward,
		Phone:           mm.Phone,
		CurrentCheckins: current,
		TargetCheckins:  target,
		Status:          status,
		LastCheckin:     legacyTime(mm.LastCheckin, now),
		ProgramID:       mm.RegisteredID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
