package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/models"
)

// RatingsHandler handles per-tool rating endpoints.
type RatingsHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewRatingsHandler constructs a RatingsHandler.
func NewRatingsHandler(conn *gorm.DB, recorder *audit.Recorder) *RatingsHandler {
	return &RatingsHandler{db: conn, recorder: recorder}
}

func (h *RatingsHandler) findTool(c *gin.Context) (models.Tool, bool) {
	toolID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return models.Tool{}, false
	}
	var tool models.Tool
	if errFind := h.db.WithContext(c.Request.Context()).First(&tool, toolID).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return models.Tool{}, false
	}
	return tool, true
}

// List returns a tool's rating summary: totals, average, distribution and
// the individual ratings.
func (h *RatingsHandler) List(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}

	var ratings []models.ToolRating
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Rater").
		Where("tool_id = ?", tool.ID).
		Find(&ratings).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	distribution := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
	sum := 0
	data := make([]gin.H, 0, len(ratings))
	for _, rating := range ratings {
		sum += rating.Value
		distribution[strconv.Itoa(rating.Value)]++
		data = append(data, ratingJSON(rating))
	}
	average := 0.0
	if len(ratings) > 0 {
		average = math.Round(float64(sum)/float64(len(ratings))*100) / 100
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"total_ratings":       len(ratings),
		"average_rating":      average,
		"rating_distribution": distribution,
		"ratings":             data,
	}})
}

// ratingRequest defines the request body for rating a tool.
type ratingRequest struct {
	Value int `json:"value"`
}

// Upsert creates the caller's rating or overwrites the existing one. Each
// user keeps at most one rating per tool.
func (h *RatingsHandler) Upsert(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}

	var body ratingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "value", "The value field is required.")
		return
	}
	if body.Value < 1 || body.Value > 5 {
		validationError(c, "value", "The value must be between 1 and 5.")
		return
	}

	ctx := c.Request.Context()
	userID := getUserID(c)

	var rating models.ToolRating
	errFind := h.db.WithContext(ctx).
		Where("tool_id = ? AND rater_id = ?", tool.ID, userID).
		First(&rating).Error
	created := false
	switch {
	case errFind == nil:
		if errUpdate := h.db.WithContext(ctx).Model(&rating).Update("value", body.Value).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save rating failed"})
			return
		}
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		created = true
		rating = models.ToolRating{ToolID: tool.ID, RaterID: userID, Value: body.Value}
		if errCreate := h.db.WithContext(ctx).Create(&rating).Error; errCreate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save rating failed"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	h.recorder.Record(ctx, "rating.saved", "Tool rated", "tool_rating", rating.ID,
		audit.CauserUser, userID, map[string]any{"tool_id": tool.ID, "value": body.Value})

	if errLoad := h.db.WithContext(ctx).Preload("Rater").First(&rating, rating.ID).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	status := http.StatusOK
	message := "Rating updated successfully"
	if created {
		status = http.StatusCreated
		message = "Rating created successfully"
	}
	c.JSON(status, gin.H{"message": message, "data": ratingJSON(rating)})
}

// MyRating returns the caller's rating for a tool, or null when absent.
func (h *RatingsHandler) MyRating(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}

	var rating models.ToolRating
	errFind := h.db.WithContext(c.Request.Context()).
		Preload("Rater").
		Where("tool_id = ? AND rater_id = ?", tool.ID, getUserID(c)).
		First(&rating).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"data": nil})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ratingJSON(rating)})
}

// DeleteMyRating removes the caller's rating for a tool.
func (h *RatingsHandler) DeleteMyRating(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}

	userID := getUserID(c)
	var rating models.ToolRating
	errFind := h.db.WithContext(c.Request.Context()).
		Where("tool_id = ? AND rater_id = ?", tool.ID, userID).
		First(&rating).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rating not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&rating).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete rating failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), "rating.deleted", "Rating removed", "tool_rating", rating.ID,
		audit.CauserUser, userID, map[string]any{"tool_id": tool.ID})

	c.JSON(http.StatusOK, gin.H{"message": "Rating deleted successfully"})
}
