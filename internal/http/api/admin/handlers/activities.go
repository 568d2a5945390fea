package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/toolshelf/toolshelf/internal/audit"
)

// ActivitiesHandler serves the audit log.
type ActivitiesHandler struct {
	recorder *audit.Recorder
}

// NewActivitiesHandler constructs an ActivitiesHandler.
func NewActivitiesHandler(recorder *audit.Recorder) *ActivitiesHandler {
	return &ActivitiesHandler{recorder: recorder}
}

// List returns the newest activity rows.
func (h *ActivitiesHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, errRecent := h.recorder.Recent(c.Request.Context(), limit)
	if errRecent != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	data := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		data = append(data, gin.H{
			"id":           row.ID,
			"event":        row.Event,
			"description":  row.Description,
			"subject_type": row.SubjectType,
			"subject_id":   row.SubjectID,
			"causer_type":  row.CauserType,
			"causer_id":    row.CauserID,
			"properties":   row.Properties,
			"created_at":   row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
