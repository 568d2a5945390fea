package models

import "time"

// Tool moderation statuses.
const (
	ToolStatusPending  = "pending"
	ToolStatusApproved = "approved"
	ToolStatusRejected = "rejected"
)

// Tool difficulty levels.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Tool represents a submitted external resource in the catalog.
type Tool struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null"` // Tool name.
	Description string `gorm:"type:text;not null"` // Free-form description.
	URL         string `gorm:"type:text;not null"` // Link to the resource.
	DocsURL     string `gorm:"type:text"`          // Optional documentation link.
	VideoURL    string `gorm:"type:text"`          // Optional video link.

	Difficulty string `gorm:"type:text;not null"` // beginner, intermediate or advanced.

	Status          string `gorm:"type:text;not null;default:'pending';index"` // Moderation status.
	RejectionReason string `gorm:"type:text"`                                  // Set when rejected.

	CreatedBy uint64 `gorm:"not null;index"`         // Submitting user ID.
	Creator   *User  `gorm:"foreignKey:CreatedBy"`   // Submitting user.

	ApprovedBy *uint64    ``                         // Reviewing admin ID.
	Approver   *Admin     `gorm:"foreignKey:ApprovedBy"` // Reviewing admin.
	ApprovedAt *time.Time ``                         // When the tool was approved.

	Categories []Category `gorm:"many2many:tool_categories"` // Category tags.
	Roles      []Role     `gorm:"many2many:tool_roles"`      // Role affinities.

	Comments []ToolComment `gorm:"foreignKey:ToolID"` // User comments.
	Ratings  []ToolRating  `gorm:"foreignKey:ToolID"` // User ratings.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
