package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/toolshelf/toolshelf/internal/models"
)

const defaultPerPage = 15

// getAdminID extracts the authenticated admin ID from gin context.
func getAdminID(c *gin.Context) uint64 {
	val, exists := c.Get("adminID")
	if !exists {
		return 0
	}
	id, ok := val.(uint64)
	if !ok {
		return 0
	}
	return id
}

// validationError responds 422 with a field-level message.
func validationError(c *gin.Context, field, message string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"message": message,
		"errors":  gin.H{field: []string{message}},
	})
}

func looksLikeEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

// pageParams reads pagination query parameters.
func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.Query("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = defaultPerPage
	}
	return page, perPage
}

// pageMeta builds the standard pagination envelope.
func pageMeta(page, perPage int, total int64) gin.H {
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return gin.H{
		"current_page": page,
		"last_page":    lastPage,
		"per_page":     perPage,
		"total":        total,
	}
}

// adminJSON serializes an admin account. The 2FA secret and recovery codes
// are never included.
func adminJSON(a models.Admin) gin.H {
	return gin.H{
		"id":                 a.ID,
		"name":               a.Name,
		"email":              a.Email,
		"role":               a.Role,
		"is_active":          a.IsActive,
		"two_factor_enabled": a.TwoFactorActive(),
		"last_login_at":      a.LastLoginAt,
		"created_at":         a.CreatedAt,
	}
}

// adminSummaryJSON serializes the short admin form embedded in other records.
func adminSummaryJSON(a *models.Admin) gin.H {
	if a == nil {
		return nil
	}
	return gin.H{"id": a.ID, "name": a.Name, "email": a.Email}
}

func userSummaryJSON(u *models.User) gin.H {
	if u == nil {
		return nil
	}
	return gin.H{"id": u.ID, "name": u.Name, "email": u.Email}
}

// toolJSON serializes a tool for the review surface, including moderation
// fields the public listing hides.
func toolJSON(t models.Tool) gin.H {
	categories := make([]gin.H, 0, len(t.Categories))
	for _, cat := range t.Categories {
		categories = append(categories, gin.H{"id": cat.ID, "name": cat.Name, "slug": cat.Slug})
	}
	roles := make([]gin.H, 0, len(t.Roles))
	for _, role := range t.Roles {
		roles = append(roles, gin.H{"id": role.ID, "name": role.Name})
	}
	return gin.H{
		"id":               t.ID,
		"name":             t.Name,
		"description":      t.Description,
		"url":              t.URL,
		"docs_url":         t.DocsURL,
		"video_url":        t.VideoURL,
		"difficulty":       t.Difficulty,
		"status":           t.Status,
		"rejection_reason": t.RejectionReason,
		"creator":          userSummaryJSON(t.Creator),
		"approver":         adminSummaryJSON(t.Approver),
		"approved_at":      t.ApprovedAt,
		"categories":       categories,
		"roles":            roles,
		"created_at":       t.CreatedAt,
		"updated_at":       t.UpdatedAt,
	}
}
