package models

import "time"

// Category represents a catalog category tools can be tagged with.
type Category struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null;uniqueIndex"` // Display name.
	Slug        string `gorm:"type:text;not null;uniqueIndex"` // URL-safe identifier.
	Description string `gorm:"type:text"`                      // Optional description.

	Tools []Tool `gorm:"many2many:tool_categories"` // Tagged tools.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
