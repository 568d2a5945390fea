package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/config"
	"github.com/toolshelf/toolshelf/internal/models"
	"github.com/toolshelf/toolshelf/internal/security"
	"github.com/toolshelf/toolshelf/internal/twofactor"
)

// AuthHandler handles the two-stage user login flow.
type AuthHandler struct {
	db        *gorm.DB
	jwtCfg    config.JWTConfig
	twoFactor *twofactor.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, twoFactor *twofactor.Service) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, twoFactor: twoFactor}
}

// loginRequest defines the request body for primary login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies primary credentials and issues an intermediate ticket.
// A final session token is never issued here.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "email", "The email field is required.")
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		validationError(c, "email", "The email field is required.")
		return
	}
	if !looksLikeEmail(email) {
		validationError(c, "email", "The email must be a valid email address.")
		return
	}
	if body.Password == "" {
		validationError(c, "password", "The password field is required.")
		return
	}

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			// Burn a hash comparison so this path costs the same as a
			// password mismatch.
			security.BurnPasswordCheck(body.Password)
			validationError(c, "email", "The provided credentials are incorrect.")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if !security.CheckPassword(user.Password, body.Password) {
		validationError(c, "email", "The provided credentials are incorrect.")
		return
	}

	now := time.Now().UTC()
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&user).
		Updates(map[string]any{"last_login_at": now, "updated_at": now}).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("user_id", user.ID).Warn("update last login")
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
		"intermediate_token":         security.GenerateUserIntermediateToken(user.ID),
		"requires_intermediate_auth": true,
	})
}

// authenticateRequest defines the request body for the second login stage.
type authenticateRequest struct {
	Token         string `json:"token"`
	TwoFactorCode string `json:"two_factor_code"`
}

// Authenticate consumes an intermediate ticket, runs the second-factor
// challenge when one is active and issues the final session token.
// The ticket stays valid until expiry, so clients may call this once without
// a code to learn whether 2FA is required, then again with one.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var body authenticateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "token", "The token field is required.")
		return
	}
	if strings.TrimSpace(body.Token) == "" {
		validationError(c, "token", "The token field is required.")
		return
	}

	userID, errToken := security.ParseUserIntermediateToken(body.Token)
	if errToken != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token", "error": "unauthorized"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token", "error": "unauthorized"})
		return
	}

	if user.TwoFactorActive() {
		code := strings.TrimSpace(body.TwoFactorCode)
		if code == "" {
			c.JSON(http.StatusOK, gin.H{"requires_2fa": true, "message": "2FA code required"})
			return
		}
		if !twofactor.IsWellFormedCode(code) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": "Invalid 2FA code format. Please enter a 6-digit code.",
				"error":   "invalid_2fa_format",
			})
			return
		}

		result, errVerify := h.twoFactor.VerifyChallenge(user.TwoFactorSecret, user.TwoFactorRecoveryCodes, code)
		if errVerify != nil {
			log.WithError(errVerify).WithField("user_id", user.ID).Error("2fa challenge")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "2fa verification failed"})
			return
		}
		if !result.OK {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": "Invalid 2FA code",
				"error":   "invalid_2fa_code",
			})
			return
		}
		if result.UsedRecoveryCode {
			// The consumed code must be gone before the session exists.
			if errUpdate := h.db.WithContext(c.Request.Context()).Model(&user).
				Update("two_factor_recovery_codes", result.RemainingCodes).Error; errUpdate != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "consume recovery code failed"})
				return
			}
		}
	}

	token, errSign := security.GenerateUserToken(h.jwtCfg.Secret, user.ID, user.Name, user.Email, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Authentication successful",
		"token":   token,
		"user":    userJSON(user),
	})
}

// Logout acknowledges a logout. Session tokens are stateless, so the client
// discards the token; nothing is revoked server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, getUserID(c)).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}
