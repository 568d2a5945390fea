package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/models"
)

// CommentsHandler handles per-tool comment endpoints.
type CommentsHandler struct {
	db       *gorm.DB
	recorder *audit.Recorder
}

// NewCommentsHandler constructs a CommentsHandler.
func NewCommentsHandler(conn *gorm.DB, recorder *audit.Recorder) *CommentsHandler {
	return &CommentsHandler{db: conn, recorder: recorder}
}

func (h *CommentsHandler) findTool(c *gin.Context) (models.Tool, bool) {
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

// List returns a tool's comments, newest first.
func (h *CommentsHandler) List(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}

	var comments []models.ToolComment
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Author").
		Where("tool_id = ?", tool.ID).
		Order("created_at DESC").
		Find(&comments).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	data := make([]gin.H, 0, len(comments))
	for _, comment := range comments {
		data = append(data, commentJSON(comment))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Get returns one comment on a tool.
func (h *CommentsHandler) Get(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}
	commentID, errParse := strconv.ParseUint(c.Param("commentID"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	var comment models.ToolComment
	errFind := h.db.WithContext(c.Request.Context()).
		Preload("Author").
		Where("tool_id = ?", tool.ID).
		First(&comment, commentID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": commentJSON(comment)})
}

// commentRequest defines the request body for writing a comment.
type commentRequest struct {
	Content string `json:"content"`
}

// Create adds a comment to a tool.
func (h *CommentsHandler) Create(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}

	var body commentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "content", "The content field is required.")
		return
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		validationError(c, "content", "The content field is required.")
		return
	}

	userID := getUserID(c)
	comment := models.ToolComment{ToolID: tool.ID, AuthorID: userID, Content: content}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&comment).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create comment failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), "comment.created", "Comment added", "tool_comment", comment.ID,
		audit.CauserUser, userID, map[string]any{"tool_id": tool.ID})

	if errLoad := h.db.WithContext(c.Request.Context()).Preload("Author").First(&comment, comment.ID).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Comment created successfully", "data": commentJSON(comment)})
}

// Update edits a comment. Only the author may edit it.
func (h *CommentsHandler) Update(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}
	commentID, errParse := strconv.ParseUint(c.Param("commentID"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	var comment models.ToolComment
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("tool_id = ?", tool.ID).
		First(&comment, commentID).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if comment.AuthorID != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to update this comment"})
		return
	}

	var body commentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "content", "The content field is required.")
		return
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		validationError(c, "content", "The content field is required.")
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&comment).
		Update("content", content).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update comment failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), "comment.updated", "Comment edited", "tool_comment", comment.ID,
		audit.CauserUser, comment.AuthorID, map[string]any{"tool_id": tool.ID})

	if errLoad := h.db.WithContext(c.Request.Context()).Preload("Author").First(&comment, comment.ID).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment updated successfully", "data": commentJSON(comment)})
}

// Delete removes a comment. Only the author may delete it.
func (h *CommentsHandler) Delete(c *gin.Context) {
	tool, ok := h.findTool(c)
	if !ok {
		return
	}
	commentID, errParse := strconv.ParseUint(c.Param("commentID"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	var comment models.ToolComment
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("tool_id = ?", tool.ID).
		First(&comment, commentID).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if comment.AuthorID != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to delete this comment"})
		return
	}

	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&comment).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete comment failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), "comment.deleted", "Comment deleted", "tool_comment", comment.ID,
		audit.CauserUser, comment.AuthorID, map[string]any{"tool_id": tool.ID})

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
