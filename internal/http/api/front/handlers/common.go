package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/toolshelf/toolshelf/internal/models"
)

// defaultPerPage matches the catalog's listing page size.
const defaultPerPage = 15

// getUserID extracts the authenticated user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
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

// looksLikeEmail applies the same shallow shape check the request layer uses.
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

// userJSON serializes a user for API responses. The 2FA secret and recovery
// codes are never included.
func userJSON(u models.User) gin.H {
	return gin.H{
		"id":                 u.ID,
		"name":               u.Name,
		"email":              u.Email,
		"two_factor_enabled": u.TwoFactorActive(),
		"last_login_at":      u.LastLoginAt,
		"created_at":         u.CreatedAt,
	}
}

// userSummaryJSON serializes the short user form embedded in other records.
func userSummaryJSON(u *models.User) gin.H {
	if u == nil {
		return nil
	}
	return gin.H{"id": u.ID, "name": u.Name, "email": u.Email}
}

// categoryJSON serializes a category.
func categoryJSON(cat models.Category) gin.H {
	return gin.H{
		"id":          cat.ID,
		"name":        cat.Name,
		"slug":        cat.Slug,
		"description": cat.Description,
	}
}

// toolJSON serializes a tool with its loaded associations.
func toolJSON(t models.Tool) gin.H {
	categories := make([]gin.H, 0, len(t.Categories))
	for _, cat := range t.Categories {
		categories = append(categories, categoryJSON(cat))
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
		"categories":       categories,
		"roles":            roles,
		"created_at":       t.CreatedAt,
		"updated_at":       t.UpdatedAt,
	}
}

// commentJSON serializes a comment with its author.
func commentJSON(comment models.ToolComment) gin.H {
	return gin.H{
		"id":         comment.ID,
		"tool_id":    comment.ToolID,
		"content":    comment.Content,
		"author":     userSummaryJSON(comment.Author),
		"created_at": comment.CreatedAt,
		"updated_at": comment.UpdatedAt,
	}
}

// ratingJSON serializes a rating with its rater.
func ratingJSON(rating models.ToolRating) gin.H {
	return gin.H{
		"id":         rating.ID,
		"tool_id":    rating.ToolID,
		"value":      rating.Value,
		"rater":      userSummaryJSON(rating.Rater),
		"created_at": rating.CreatedAt,
		"updated_at": rating.UpdatedAt,
	}
}
