// types.go
package migration

import (
	"time"
)

// MongoProgram mirrors a document of the legacy "restaurant" collection.
// Field names follow the old mobile client exactly; anything it never
// wrote decodes to the zero value and is defaulted by the converter.
type MongoProgram struct {
	ID             interface{} `bson:"_id"`
	Title          string      `bson:"title"`
	Image          string      `bson:"image"`
	TargetCheckins int         `bson:"targetCheckins"`
	Reward         string      `bson:"reward"`
	Code           string      `bson:"code"`
	CheckinCode    string      `bson:"checkinCode"`
}

// MongoMembership mirrors a document of the legacy
// "registered-restaurant" collection.
type MongoMembership struct {
	ID              interface{} `bson:"_id"`
	Title           string      `bson:"title"`
	Image           string      `bson:"image"`
	LastCheckin     interface{} `bson:"lastCheckin"`
	CurrentCheckins int         `bson:"currentCheckins"`
	TargetCheckins  int         `bson:"targetCheckins"`
	Phone           string      `bson:"phone"`
	Reward          string      `bson:"reward"`
	Status          string      `bson:"status"`
	RegisteredID    string      `bson:"registeredId"`
}

// MigrationStats tracks migration progress and issues
type MigrationStats struct {
	Tables         map[string]*TableStats `json:"tables"`
	StartTime      time.Time              `json:"start_time"`
	EndTime        time.Time              `json:"end_time"`
	TotalErrors    int                    `json:"total_errors"`
	TotalSkipped   int                    `json:"total_skipped"`
	TotalProcessed int                    `json:"total_processed"`
}

// TableStats tracks stats for individual tables
type TableStats struct {
	TableName      string          `json:"table_name"`
	Processed      int             `json:"processed"`
	Successful     int             `json:"successful"`
	Skipped        int             `json:"skipped"`
	Errors         int             `json:"errors"`
	SkippedRecords []SkippedRecord `json:"skipped_records"`
}

// SkippedRecord tracks why a record was skipped
type SkippedRecord struct {
	Reason    string    `json:"reason"`
	Data      string    `json:"data"` // JSON representation of the record
	Timestamp time.Time `json:"timestamp"`
}
