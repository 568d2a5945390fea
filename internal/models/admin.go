package models

import (
	"time"

	"gorm.io/datatypes"
)

// Admin represents an administrator account stored in the database.
// Admins live in their own credential store and token namespace; they are
// never interchangeable with users.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:text;not null"`             // Display name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Role     string `gorm:"type:text;not null;default:'admin'"` // admin or moderator.
	IsActive bool   `gorm:"not null;default:true"`              // Deactivated admins cannot sign in.

	TwoFactorSecret        string         `gorm:"type:text"`              // Encrypted TOTP secret, empty when unenrolled.
	TwoFactorEnabled       bool           `gorm:"not null;default:false"` // Whether the second factor is active.
	TwoFactorConfirmedAt   *time.Time     ``                              // Set once the generated secret was verified.
	TwoFactorRecoveryCodes datatypes.JSON `gorm:"type:jsonb"`             // Single-use recovery codes in JSON.

	LastLoginAt *time.Time // Last successful primary login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TwoFactorActive reports whether the login challenge must run for this admin.
func (a Admin) TwoFactorActive() bool {
	return a.TwoFactorEnabled && a.TwoFactorConfirmedAt != nil
}
