// Package front registers the user-facing API surface.
package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/cache"
	"github.com/toolshelf/toolshelf/internal/config"
	"github.com/toolshelf/toolshelf/internal/http/api/front/handlers"
	"github.com/toolshelf/toolshelf/internal/models"
	"github.com/toolshelf/toolshelf/internal/security"
	"github.com/toolshelf/toolshelf/internal/twofactor"
)

// RegisterRoutes registers public and authenticated user routes under /api.
func RegisterRoutes(r *gin.Engine, conn *gorm.DB, jwtCfg config.JWTConfig, twoFactor *twofactor.Service, store *cache.Store, recorder *audit.Recorder) {
	if r == nil || conn == nil {
		return
	}

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(conn, jwtCfg, twoFactor)
	api.POST("/login", authHandler.Login)
	api.POST("/authenticate", authHandler.Authenticate)

	toolsHandler := handlers.NewToolsHandler(conn, store, recorder)
	commentsHandler := handlers.NewCommentsHandler(conn, recorder)
	ratingsHandler := handlers.NewRatingsHandler(conn, recorder)
	categoriesHandler := handlers.NewCategoriesHandler(conn, store)

	// Public reads. Tool listings honor a bearer token when present so
	// creators see their own pending submissions.
	maybeAuthed := api.Group("")
	maybeAuthed.Use(optionalUserMiddleware(conn, jwtCfg))
	maybeAuthed.GET("/tools", toolsHandler.List)
	maybeAuthed.GET("/tools/:id", toolsHandler.Get)

	api.GET("/categories", categoriesHandler.List)
	api.GET("/tools/:id/comments", commentsHandler.List)
	api.GET("/tools/:id/comments/:commentID", commentsHandler.Get)
	api.GET("/tools/:id/ratings", ratingsHandler.List)

	authed := api.Group("")
	authed.Use(userAuthMiddleware(conn, jwtCfg))

	authed.POST("/logout", authHandler.Logout)
	authed.GET("/user", authHandler.Me)

	twoFactorHandler := handlers.NewTwoFactorHandler(conn, twoFactor, recorder)
	twoFactorRoutes := authed.Group("/two-factor")
	twoFactorRoutes.GET("/status", twoFactorHandler.Status)
	twoFactorRoutes.POST("/generate", twoFactorHandler.Generate)
	twoFactorRoutes.POST("/confirm", twoFactorHandler.Confirm)
	twoFactorRoutes.POST("/disable", twoFactorHandler.Disable)
	twoFactorRoutes.POST("/recovery-codes", twoFactorHandler.RecoveryCodes)

	authed.POST("/tools", toolsHandler.Create)
	authed.PUT("/tools/:id", toolsHandler.Update)
	authed.PATCH("/tools/:id", toolsHandler.Update)
	authed.DELETE("/tools/:id", toolsHandler.Delete)

	authed.POST("/tools/:id/comments", commentsHandler.Create)
	authed.PUT("/tools/:id/comments/:commentID", commentsHandler.Update)
	authed.DELETE("/tools/:id/comments/:commentID", commentsHandler.Delete)

	authed.POST("/tools/:id/ratings", ratingsHandler.Upsert)
	authed.GET("/tools/:id/my-rating", ratingsHandler.MyRating)
	authed.DELETE("/tools/:id/my-rating", ratingsHandler.DeleteMyRating)

	authed.POST("/categories", categoriesHandler.Create)
	authed.GET("/stats/tool-counts", categoriesHandler.ToolCounts)
}

// userAuthMiddleware validates user session tokens and loads the user ID
// into the request context.
func userAuthMiddleware(conn *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearerUserClaims(c, jwtCfg)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		var user models.User
		if errFind := conn.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}

// optionalUserMiddleware loads the user ID when a valid bearer token is
// present but never rejects the request.
func optionalUserMiddleware(conn *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearerUserClaims(c, jwtCfg); ok {
			var user models.User
			if errFind := conn.WithContext(c.Request.Context()).Select("id").First(&user, claims.UserID).Error; errFind == nil {
				c.Set("userID", user.ID)
			}
		}
		c.Next()
	}
}

func parseBearerUserClaims(c *gin.Context, jwtCfg config.JWTConfig) (*security.UserClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}
	claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
	if errJWT != nil {
		return nil, false
	}
	return claims, true
}
