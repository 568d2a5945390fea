package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/cache"
	"github.com/toolshelf/toolshelf/internal/db"
	"github.com/toolshelf/toolshelf/internal/models"
)

// ToolsHandler handles the moderation queue.
type ToolsHandler struct {
	db       *gorm.DB
	cache    *cache.Store
	recorder *audit.Recorder
}

// NewToolsHandler constructs a ToolsHandler.
func NewToolsHandler(conn *gorm.DB, store *cache.Store, recorder *audit.Recorder) *ToolsHandler {
	return &ToolsHandler{db: conn, cache: store, recorder: recorder}
}

func validStatus(status string) bool {
	switch status {
	case models.ToolStatusPending, models.ToolStatusApproved, models.ToolStatusRejected:
		return true
	}
	return false
}

// List returns tools of every status with review filters, newest first.
func (h *ToolsHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	query := h.db.WithContext(ctx).Model(&models.Tool{}).
		Preload("Categories").Preload("Roles").Preload("Creator").Preload("Approver")

	if status := c.Query("status"); validStatus(status) {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
		query = query.Where(
			"("+db.CaseInsensitiveLikeExpr(h.db, "name")+" OR "+db.CaseInsensitiveLikeExpr(h.db, "description")+")",
			pattern, pattern,
		)
	}
	if categoryID, err := strconv.ParseUint(c.Query("category"), 10, 64); err == nil {
		query = query.Where("id IN (SELECT tool_id FROM tool_categories WHERE category_id = ?)", categoryID)
	}
	if roleID, err := strconv.ParseUint(c.Query("role"), 10, 64); err == nil {
		query = query.Where("id IN (SELECT tool_id FROM tool_roles WHERE role_id = ?)", roleID)
	}
	if from, err := time.Parse("2006-01-02", c.Query("date_from")); err == nil {
		query = query.Where("created_at >= ?", from)
	}
	if to, err := time.Parse("2006-01-02", c.Query("date_to")); err == nil {
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
	}

	page, perPage := pageParams(c)
	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var tools []models.Tool
	if errFind := query.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&tools).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	data := make([]gin.H, 0, len(tools))
	for _, tool := range tools {
		data = append(data, toolJSON(tool))
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "meta": pageMeta(page, perPage, total)})
}

func (h *ToolsHandler) findTool(c *gin.Context) (models.Tool, bool) {
	toolID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return models.Tool{}, false
	}
	var tool models.Tool
	errFind := h.db.WithContext(c.Request.Context()).
		Preload("Categories").Preload("Roles").Preload("Creator").Preload("Approver").
		First(&tool, toolID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
			return models.Tool{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return models.Tool{}, false
	}
	return tool, true
}

// Get returns one tool regardless of status.
func (h *ToolsHandler) Get(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toolJSON(tool)})
}

// Approve marks a tool approved, recording the reviewing admin. A previous
// rejection reason is cleared.
func (h *ToolsHandler) Approve(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}
	if tool.Status == models.ToolStatusApproved {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Tool is already approved."})
		return
	}

	ctx := c.Request.Context()
	adminID := getAdminID(c)
	now := time.Now().UTC()
	if errUpdate := h.db.WithContext(ctx).Model(&tool).Updates(map[string]any{
		"status":           models.ToolStatusApproved,
		"approved_by":      adminID,
		"approved_at":      now,
		"rejection_reason": "",
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "approve tool failed"})
		return
	}

	h.cache.Forget(ctx, cache.KeyCategoriesWithCounts, cache.KeyToolCountsByCategory)
	h.recorder.Record(ctx, "tool.approved", "Tool approved", "tool", tool.ID,
		audit.CauserAdmin, adminID, map[string]any{"name": tool.Name})

	if errLoad := h.db.WithContext(ctx).
		Preload("Categories").Preload("Roles").Preload("Creator").Preload("Approver").
		First(&tool, tool.ID).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tool approved successfully", "data": toolJSON(tool)})
}

// rejectRequest defines the request body for rejecting a tool.
type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject marks a tool rejected with a reason for the submitter.
func (h *ToolsHandler) Reject(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}
	if tool.Status == models.ToolStatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Tool is already rejected."})
		return
	}

	var body rejectRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "reason", "The reason field is required.")
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		validationError(c, "reason", "The reason field is required.")
		return
	}

	ctx := c.Request.Context()
	adminID := getAdminID(c)
	if errUpdate := h.db.WithContext(ctx).Model(&tool).Updates(map[string]any{
		"status":           models.ToolStatusRejected,
		"rejection_reason": reason,
		"approved_by":      nil,
		"approved_at":      nil,
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reject tool failed"})
		return
	}

	h.cache.Forget(ctx, cache.KeyCategoriesWithCounts, cache.KeyToolCountsByCategory)
	h.recorder.Record(ctx, "tool.rejected", "Tool rejected", "tool", tool.ID,
		audit.CauserAdmin, adminID, map[string]any{"name": tool.Name, "reason": reason})

	if errLoad := h.db.WithContext(ctx).
		Preload("Categories").Preload("Roles").Preload("Creator").Preload("Approver").
		First(&tool, tool.ID).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tool rejected successfully", "data": toolJSON(tool)})
}
