package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/models"
	"github.com/toolshelf/toolshelf/internal/security"
	"github.com/toolshelf/toolshelf/internal/twofactor"
)

// TwoFactorHandler handles 2FA enrollment for users.
type TwoFactorHandler struct {
	db        *gorm.DB
	twoFactor *twofactor.Service
	recorder  *audit.Recorder
}

// NewTwoFactorHandler constructs a TwoFactorHandler.
func NewTwoFactorHandler(db *gorm.DB, twoFactor *twofactor.Service, recorder *audit.Recorder) *TwoFactorHandler {
	return &TwoFactorHandler{db: db, twoFactor: twoFactor, recorder: recorder}
}

func (h *TwoFactorHandler) loadUser(c *gin.Context) (models.User, bool) {
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, getUserID(c)).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return models.User{}, false
	}
	return user, true
}

// Status reports the enrollment state. The secret and codes themselves are
// never exposed here.
func (h *TwoFactorHandler) Status(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":              user.TwoFactorEnabled,
		"confirmed":            user.TwoFactorConfirmedAt != nil,
		"recovery_codes_count": twofactor.CountRecoveryCodes(user.TwoFactorRecoveryCodes),
	})
}

// Generate creates a fresh secret and returns it with provisioning material.
// Any prior unconfirmed secret is overwritten; the secret is inert for login
// until confirmed.
func (h *TwoFactorHandler) Generate(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	setup, errSetup := h.twoFactor.GenerateSecret(user.Email)
	if errSetup != nil {
		log.WithError(errSetup).WithField("user_id", user.ID).Error("generate 2fa secret")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate secret failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&user).Updates(map[string]any{
		"two_factor_secret":       setup.EncryptedSecret,
		"two_factor_enabled":      false,
		"two_factor_confirmed_at": nil,
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret":           setup.Secret,
		"qr_code":          setup.QRCodeSVG,
		"manual_entry_key": setup.ManualEntryKey,
	})
}

// confirmRequest defines the request body for confirming enrollment.
type confirmRequest struct {
	Code string `json:"code"`
}

// Confirm verifies a code against the pending secret, activates 2FA and
// returns the recovery codes. The codes are shown exactly once.
func (h *TwoFactorHandler) Confirm(c *gin.Context) {
	var body confirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "code", "The code field is required.")
		return
	}
	code := strings.TrimSpace(body.Code)
	if len(code) != 6 {
		validationError(c, "code", "The code must be 6 characters.")
		return
	}

	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if user.TwoFactorSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No 2FA secret found. Please generate a new secret first."})
		return
	}

	valid, errVerify := h.twoFactor.VerifyTOTP(user.TwoFactorSecret, code)
	if errVerify != nil {
		log.WithError(errVerify).WithField("user_id", user.ID).Error("confirm 2fa")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	if !valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid verification code. Please try again."})
		return
	}

	codes, errCodes := twofactor.GenerateRecoveryCodes()
	if errCodes != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate recovery codes failed"})
		return
	}
	encoded, errEncode := twofactor.EncodeRecoveryCodes(codes)
	if errEncode != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate recovery codes failed"})
		return
	}

	now := time.Now().UTC()
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&user).Updates(map[string]any{
		"two_factor_enabled":        true,
		"two_factor_confirmed_at":   now,
		"two_factor_recovery_codes": encoded,
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), "two_factor.enabled", "Two-factor authentication enabled",
		"user", user.ID, audit.CauserUser, user.ID, nil)

	c.JSON(http.StatusOK, gin.H{
		"message":        "2FA has been enabled successfully.",
		"recovery_codes": codes,
	})
}

// passwordRequest defines request bodies that require password re-entry.
type passwordRequest struct {
	Password string `json:"password"`
}

// Disable turns 2FA off after password re-entry, clearing the secret,
// flags and recovery codes in one update.
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	var body passwordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Password == "" {
		validationError(c, "password", "The password field is required.")
		return
	}

	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid password."})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&user).Updates(map[string]any{
		"two_factor_secret":         "",
		"two_factor_enabled":        false,
		"two_factor_confirmed_at":   nil,
		"two_factor_recovery_codes": nil,
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), "two_factor.disabled", "Two-factor authentication disabled",
		"user", user.ID, audit.CauserUser, user.ID, nil)

	c.JSON(http.StatusOK, gin.H{"message": "2FA has been disabled successfully."})
}

// RecoveryCodes replaces the whole recovery-code set after password
// re-entry. Previous codes all stop working.
func (h *TwoFactorHandler) RecoveryCodes(c *gin.Context) {
	var body passwordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Password == "" {
		validationError(c, "password", "The password field is required.")
		return
	}

	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid password."})
		return
	}
	if !user.TwoFactorEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"message": "2FA is not enabled."})
		return
	}

	codes, errCodes := twofactor.GenerateRecoveryCodes()
	if errCodes != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate recovery codes failed"})
		return
	}
	encoded, errEncode := twofactor.EncodeRecoveryCodes(codes)
	if errEncode != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate recovery codes failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&user).
		Update("two_factor_recovery_codes", encoded).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), "two_factor.recovery_codes_regenerated", "Recovery codes regenerated",
		"user", user.ID, audit.CauserUser, user.ID, nil)

	c.JSON(http.StatusOK, gin.H{
		"message":        "New recovery codes generated successfully.",
		"recovery_codes": codes,
	})
}
