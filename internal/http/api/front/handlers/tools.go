package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/cache"
	"github.com/toolshelf/toolshelf/internal/db"
	"github.com/toolshelf/toolshelf/internal/models"
)

// ToolsHandler handles catalog tool endpoints.
type ToolsHandler struct {
	db       *gorm.DB
	cache    *cache.Store
	recorder *audit.Recorder
}

// NewToolsHandler constructs a ToolsHandler.
func NewToolsHandler(conn *gorm.DB, store *cache.Store, recorder *audit.Recorder) *ToolsHandler {
	return &ToolsHandler{db: conn, cache: store, recorder: recorder}
}

// toolRequest defines the request body for creating or updating a tool.
type toolRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	DocsURL     string   `json:"docs_url"`
	VideoURL    string   `json:"video_url"`
	Difficulty  string   `json:"difficulty"`
	Categories  []uint64 `json:"categories"`
	Roles       []uint64 `json:"roles"`
}

func validDifficulty(difficulty string) bool {
	switch difficulty {
	case models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
		return true
	}
	return false
}

func validHTTPURL(raw string) bool {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// validateToolRequest checks the shared field rules; a false return means a
// 422 was already written.
func validateToolRequest(c *gin.Context, body *toolRequest) bool {
	body.Name = strings.TrimSpace(body.Name)
	body.Description = strings.TrimSpace(body.Description)
	body.URL = strings.TrimSpace(body.URL)
	body.DocsURL = strings.TrimSpace(body.DocsURL)
	body.VideoURL = strings.TrimSpace(body.VideoURL)

	switch {
	case body.Name == "" || len(body.Name) > 255:
		validationError(c, "name", "The name field is required and may not be greater than 255 characters.")
	case body.Description == "":
		validationError(c, "description", "The description field is required.")
	case !validHTTPURL(body.URL):
		validationError(c, "url", "The url must be a valid URL.")
	case body.DocsURL != "" && !validHTTPURL(body.DocsURL):
		validationError(c, "docs_url", "The docs url must be a valid URL.")
	case body.VideoURL != "" && !validHTTPURL(body.VideoURL):
		validationError(c, "video_url", "The video url must be a valid URL.")
	case !validDifficulty(body.Difficulty):
		validationError(c, "difficulty", "The selected difficulty is invalid.")
	default:
		return true
	}
	return false
}

// resolveCategories loads the referenced categories, failing validation when
// any ID does not exist.
func (h *ToolsHandler) resolveCategories(c *gin.Context, ids []uint64) ([]models.Category, bool) {
	var categories []models.Category
	if errFind := h.db.WithContext(c.Request.Context()).Where("id IN ?", ids).Find(&categories).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	if len(categories) != len(ids) {
		validationError(c, "categories", "The selected categories are invalid.")
		return nil, false
	}
	return categories, true
}

// resolveRoles loads the referenced roles, failing validation when any ID
// does not exist.
func (h *ToolsHandler) resolveRoles(c *gin.Context, ids []uint64) ([]models.Role, bool) {
	var roles []models.Role
	if errFind := h.db.WithContext(c.Request.Context()).Where("id IN ?", ids).Find(&roles).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	if len(roles) != len(ids) {
		validationError(c, "roles", "The selected roles are invalid.")
		return nil, false
	}
	return roles, true
}

// List returns approved tools plus the caller's own submissions, filtered
// and paginated, newest first.
func (h *ToolsHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	query := h.db.WithContext(ctx).Model(&models.Tool{}).
		Preload("Categories").Preload("Roles").Preload("Creator")

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
	if difficulty := c.Query("difficulty"); validDifficulty(difficulty) {
		query = query.Where("difficulty = ?", difficulty)
	}
	if roleID, err := strconv.ParseUint(c.Query("role"), 10, 64); err == nil {
		query = query.Where("id IN (SELECT tool_id FROM tool_roles WHERE role_id = ?)", roleID)
	}

	if userID := getUserID(c); userID != 0 {
		query = query.Where("status = ? OR created_by = ?", models.ToolStatusApproved, userID)
	} else {
		query = query.Where("status = ?", models.ToolStatusApproved)
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

// Get returns one tool. Pending and rejected tools are visible only to
// their creator.
func (h *ToolsHandler) Get(c *gin.Context) {
	toolID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return
	}

	var tool models.Tool
	errFind := h.db.WithContext(c.Request.Context()).
		Preload("Categories").Preload("Roles").Preload("Creator").
		First(&tool, toolID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if tool.Status != models.ToolStatusApproved && tool.CreatedBy != getUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toolJSON(tool)})
}

// Create submits a new tool. Submissions start pending and await review.
func (h *ToolsHandler) Create(c *gin.Context) {
	var body toolRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "name", "The name field is required.")
		return
	}
	if !validateToolRequest(c, &body) {
		return
	}
	if len(body.Categories) == 0 {
		validationError(c, "categories", "The categories field is required.")
		return
	}
	if len(body.Roles) == 0 {
		validationError(c, "roles", "The roles field is required.")
		return
	}

	categories, ok := h.resolveCategories(c, body.Categories)
	if !ok {
		return
	}
	roles, ok := h.resolveRoles(c, body.Roles)
	if !ok {
		return
	}

	userID := getUserID(c)
	tool := models.Tool{
		Name:        body.Name,
		Description: body.Description,
		URL:         body.URL,
		DocsURL:     body.DocsURL,
		VideoURL:    body.VideoURL,
		Difficulty:  body.Difficulty,
		Status:      models.ToolStatusPending,
		CreatedBy:   userID,
		Categories:  categories,
		Roles:       roles,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&tool).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create tool failed"})
		return
	}

	h.cache.Forget(c.Request.Context(), cache.KeyCategoriesWithCounts, cache.KeyToolCountsByCategory)
	h.recorder.Record(c.Request.Context(), "tool.created", "Tool submitted", "tool", tool.ID,
		audit.CauserUser, userID, map[string]any{"name": tool.Name})

	if errLoad := h.db.WithContext(c.Request.Context()).Preload("Creator").First(&tool, tool.ID).Error; errLoad == nil {
		c.JSON(http.StatusCreated, gin.H{"message": "Tool created successfully", "data": toolJSON(tool)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Tool created successfully", "data": toolJSON(tool)})
}

// Update edits a tool. Only the creator may update it.
func (h *ToolsHandler) Update(c *gin.Context) {
	toolID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return
	}

	var tool models.Tool
	if errFind := h.db.WithContext(c.Request.Context()).First(&tool, toolID).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return
	}
	if tool.CreatedBy != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to update this tool"})
		return
	}

	var body toolRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "name", "The name field is required.")
		return
	}
	if !validateToolRequest(c, &body) {
		return
	}

	updates := map[string]any{
		"name":        body.Name,
		"description": body.Description,
		"url":         body.URL,
		"docs_url":    body.DocsURL,
		"video_url":   body.VideoURL,
		"difficulty":  body.Difficulty,
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&tool).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update tool failed"})
		return
	}

	if len(body.Categories) > 0 {
		categories, ok := h.resolveCategories(c, body.Categories)
		if !ok {
			return
		}
		if errReplace := h.db.WithContext(c.Request.Context()).Model(&tool).
			Association("Categories").Replace(categories); errReplace != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update tool failed"})
			return
		}
	}
	if len(body.Roles) > 0 {
		roles, ok := h.resolveRoles(c, body.Roles)
		if !ok {
			return
		}
		if errReplace := h.db.WithContext(c.Request.Context()).Model(&tool).
			Association("Roles").Replace(roles); errReplace != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update tool failed"})
			return
		}
	}

	h.cache.Forget(c.Request.Context(), cache.KeyCategoriesWithCounts, cache.KeyToolCountsByCategory)
	h.recorder.Record(c.Request.Context(), "tool.updated", "Tool updated", "tool", tool.ID,
		audit.CauserUser, tool.CreatedBy, map[string]any{"name": body.Name})

	if errLoad := h.db.WithContext(c.Request.Context()).
		Preload("Categories").Preload("Roles").Preload("Creator").
		First(&tool, tool.ID).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tool updated successfully", "data": toolJSON(tool)})
}

// Delete removes a tool. Only the creator may delete it.
func (h *ToolsHandler) Delete(c *gin.Context) {
	toolID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return
	}

	var tool models.Tool
	if errFind := h.db.WithContext(c.Request.Context()).First(&tool, toolID).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
		return
	}
	if tool.CreatedBy != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to delete this tool"})
		return
	}

	ctx := c.Request.Context()
	if errClear := h.db.WithContext(ctx).Model(&tool).Association("Categories").Clear(); errClear != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete tool failed"})
		return
	}
	if errClear := h.db.WithContext(ctx).Model(&tool).Association("Roles").Clear(); errClear != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete tool failed"})
		return
	}
	if errDelete := h.db.WithContext(ctx).Delete(&tool).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete tool failed"})
		return
	}

	h.cache.Forget(ctx, cache.KeyCategoriesWithCounts, cache.KeyToolCountsByCategory)
	h.recorder.Record(ctx, "tool.deleted", "Tool deleted", "tool", tool.ID,
		audit.CauserUser, tool.CreatedBy, map[string]any{"name": tool.Name})

	c.JSON(http.StatusOK, gin.H{"message": "Tool deleted successfully"})
}
