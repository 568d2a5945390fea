package models

import (
	"time"

	"gorm.io/datatypes"
)

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:text;not null"`             // Display name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	TwoFactorSecret        string         `gorm:"type:text"`              // Encrypted TOTP secret, empty when unenrolled.
	TwoFactorEnabled       bool           `gorm:"not null;default:false"` // Whether the second factor is active.
	TwoFactorConfirmedAt   *time.Time     ``                              // Set once the generated secret was verified.
	TwoFactorRecoveryCodes datatypes.JSON `gorm:"type:jsonb"`             // Single-use recovery codes in JSON.

	LastLoginAt *time.Time // Last successful primary login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TwoFactorActive reports whether the login challenge must run for this user.
func (u User) TwoFactorActive() bool {
	return u.TwoFactorEnabled && u.TwoFactorConfirmedAt != nil
}
