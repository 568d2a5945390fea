// Package admin registers the administrative API surface.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/cache"
	"github.com/toolshelf/toolshelf/internal/config"
	"github.com/toolshelf/toolshelf/internal/http/api/admin/handlers"
	"github.com/toolshelf/toolshelf/internal/models"
	"github.com/toolshelf/toolshelf/internal/security"
	"github.com/toolshelf/toolshelf/internal/twofactor"
)

// RegisterRoutes registers public and authenticated admin routes under
// /api/admin.
func RegisterRoutes(r *gin.Engine, conn *gorm.DB, jwtCfg config.JWTConfig, twoFactor *twofactor.Service, store *cache.Store, recorder *audit.Recorder) {
	if r == nil || conn == nil {
		return
	}

	api := r.Group("/api/admin")

	authHandler := handlers.NewAuthHandler(conn, jwtCfg, twoFactor)
	api.POST("/login", authHandler.Login)
	api.POST("/authenticate", authHandler.Authenticate)

	authed := api.Group("")
	authed.Use(adminAuthMiddleware(conn, jwtCfg))

	authed.POST("/logout", authHandler.Logout)
	authed.GET("/me", authHandler.Me)

	twoFactorHandler := handlers.NewTwoFactorHandler(conn, twoFactor, recorder)
	twoFactorRoutes := authed.Group("/two-factor")
	twoFactorRoutes.GET("/status", twoFactorHandler.Status)
	twoFactorRoutes.POST("/generate", twoFactorHandler.Generate)
	twoFactorRoutes.POST("/confirm", twoFactorHandler.Confirm)
	twoFactorRoutes.POST("/disable", twoFactorHandler.Disable)
	twoFactorRoutes.POST("/recovery-codes", twoFactorHandler.RecoveryCodes)

	toolsHandler := handlers.NewToolsHandler(conn, store, recorder)
	authed.GET("/tools", toolsHandler.List)
	authed.GET("/tools/:id", toolsHandler.Get)
	authed.POST("/tools/:id/approve", toolsHandler.Approve)
	authed.POST("/tools/:id/reject", toolsHandler.Reject)

	statsHandler := handlers.NewStatsHandler(conn)
	authed.GET("/stats", statsHandler.Overview)

	activitiesHandler := handlers.NewActivitiesHandler(recorder)
	authed.GET("/activities", activitiesHandler.List)
}

// adminAuthMiddleware validates admin session tokens, rejects deactivated
// accounts and loads the admin ID into the request context.
func adminAuthMiddleware(conn *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, strings.TrimSpace(token))
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		var admin models.Admin
		if errFind := conn.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if !admin.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Next()
	}
}
