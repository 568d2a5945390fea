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

// AuthHandler handles the two-stage admin login flow.
type AuthHandler struct {
	db        *gorm.DB
	jwtCfg    config.JWTConfig
	twoFactor *twofactor.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, twoFactor *twofactor.Service) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, twoFactor: twoFactor}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies admin credentials and issues an intermediate ticket.
// Deactivated accounts are refused after the password check so the response
// never reveals whether the credentials were right for them.
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

	var admin models.Admin
	errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&admin).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			security.BurnPasswordCheck(body.Password)
			validationError(c, "email", "The provided credentials are incorrect.")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if !security.CheckPassword(admin.Password, body.Password) {
		validationError(c, "email", "The provided credentials are incorrect.")
		return
	}
	if !admin.IsActive {
		validationError(c, "email", "This admin account has been deactivated.")
		return
	}

	now := time.Now().UTC()
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&admin).
		Updates(map[string]any{"last_login_at": now, "updated_at": now}).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("admin_id", admin.ID).Warn("update last login")
	}

	c.JSON(http.StatusOK, gin.H{
		"admin": gin.H{
			"id":    admin.ID,
			"name":  admin.Name,
			"email": admin.Email,
			"role":  admin.Role,
		},
		"intermediate_token":         security.GenerateAdminIntermediateToken(admin.ID),
		"requires_intermediate_auth": true,
	})
}

type authenticateRequest struct {
	Token         string `json:"token"`
	TwoFactorCode string `json:"two_factor_code"`
}

// Authenticate consumes an admin intermediate ticket, runs the second-factor
// challenge when one is active and issues the final session token.
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

	adminID, errToken := security.ParseAdminIntermediateToken(body.Token)
	if errToken != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token", "error": "unauthorized"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, adminID).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token", "error": "unauthorized"})
		return
	}
	// An account deactivated inside the ticket window never gets a session.
	if !admin.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token", "error": "unauthorized"})
		return
	}

	if admin.TwoFactorActive() {
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

		result, errVerify := h.twoFactor.VerifyChallenge(admin.TwoFactorSecret, admin.TwoFactorRecoveryCodes, code)
		if errVerify != nil {
			log.WithError(errVerify).WithField("admin_id", admin.ID).Error("2fa challenge")
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
			if errUpdate := h.db.WithContext(c.Request.Context()).Model(&admin).
				Update("two_factor_recovery_codes", result.RemainingCodes).Error; errUpdate != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "consume recovery code failed"})
				return
			}
		}
	}

	token, errSign := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Email, admin.Role, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Authentication successful",
		"token":   token,
		"admin":   adminJSON(admin),
	})
}

// Logout acknowledges a logout. Admin session tokens are stateless, so
// nothing is revoked server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated admin.
func (h *AuthHandler) Me(c *gin.Context) {
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, getAdminID(c)).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": adminJSON(admin)})
}
