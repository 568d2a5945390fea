package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/models"
)

// StatsHandler serves review-dashboard counters.
type StatsHandler struct {
	db *gorm.DB
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(conn *gorm.DB) *StatsHandler {
	return &StatsHandler{db: conn}
}

// Overview returns tool counts by status plus catalog totals.
func (h *StatsHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	type statusRow struct {
		Status string
		Count  int64
	}
	var rows []statusRow
	if errQuery := h.db.WithContext(ctx).Model(&models.Tool{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; errQuery != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	byStatus := gin.H{
		models.ToolStatusPending:  int64(0),
		models.ToolStatusApproved: int64(0),
		models.ToolStatusRejected: int64(0),
	}
	var totalTools int64
	for _, row := range rows {
		byStatus[row.Status] = row.Count
		totalTools += row.Count
	}

	var userCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var categoryCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.Category{}).Count(&categoryCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var recent []models.Tool
	if errFind := h.db.WithContext(ctx).
		Preload("Creator").
		Order("created_at DESC").
		Limit(5).
		Find(&recent).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	recentData := make([]gin.H, 0, len(recent))
	for _, tool := range recent {
		recentData = append(recentData, gin.H{
			"id":         tool.ID,
			"name":       tool.Name,
			"status":     tool.Status,
			"creator":    userSummaryJSON(tool.Creator),
			"created_at": tool.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tools": gin.H{
			"total":     totalTools,
			"by_status": byStatus,
		},
		"users":              userCount,
		"categories":         categoryCount,
		"recent_submissions": recentData,
	}})
}
