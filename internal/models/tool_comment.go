package models

import "time"

// ToolComment represents a user comment on a tool.
type ToolComment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ToolID uint64 `gorm:"not null;index"`    // Commented tool ID.
	Tool   *Tool  `gorm:"foreignKey:ToolID"` // Commented tool.

	AuthorID uint64 `gorm:"not null;index"`      // Commenting user ID.
	Author   *User  `gorm:"foreignKey:AuthorID"` // Commenting user.

	Content string `gorm:"type:text;not null"` // Comment body.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
