package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity represents one audit log entry: who did what to which record.
type Activity struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Event       string `gorm:"type:text;not null;index"` // Short event name, e.g. tool.approved.
	Description string `gorm:"type:text;not null"`       // Human-readable summary.

	SubjectType string `gorm:"type:text;index:idx_activity_subject"` // Affected record type.
	SubjectID   uint64 `gorm:"index:idx_activity_subject"`           // Affected record ID.

	CauserType string `gorm:"type:text"` // user or admin.
	CauserID   uint64 ``                 // Acting principal ID.

	Properties datatypes.JSON `gorm:"type:jsonb"` // Extra event context in JSON.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Event timestamp.
}
