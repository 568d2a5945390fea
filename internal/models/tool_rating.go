package models

import "time"

// ToolRating represents a single user's 1-5 rating of a tool.
// A user keeps at most one rating per tool; re-rating overwrites it.
type ToolRating struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ToolID uint64 `gorm:"not null;uniqueIndex:idx_tool_rater"` // Rated tool ID.
	Tool   *Tool  `gorm:"foreignKey:ToolID"`                   // Rated tool.

	RaterID uint64 `gorm:"not null;uniqueIndex:idx_tool_rater"` // Rating user ID.
	Rater   *User  `gorm:"foreignKey:RaterID"`                  // Rating user.

	Value int `gorm:"not null"` // Rating value, 1 through 5.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
