package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/cache"
	"github.com/toolshelf/toolshelf/internal/models"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewCategoriesHandler constructs a CategoriesHandler.
func NewCategoriesHandler(conn *gorm.DB, store *cache.Store) *CategoriesHandler {
	return &CategoriesHandler{db: conn, cache: store}
}

// categoryWithCount is the cached listing row.
type categoryWithCount struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ToolsCount  int64  `json:"tools_count"`
}

// List returns all categories with their approved-tool counts. Results are
// cached until a tool mutation invalidates them.
func (h *CategoriesHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var rows []categoryWithCount
	if !h.cache.GetJSON(ctx, cache.KeyCategoriesWithCounts, &rows) {
		if errQuery := h.db.WithContext(ctx).Model(&models.Category{}).
			Select(`categories.id, categories.name, categories.slug, categories.description,
				(SELECT COUNT(*) FROM tool_categories tc
					JOIN tools t ON t.id = tc.tool_id AND t.status = ?
					WHERE tc.category_id = categories.id) AS tools_count`, models.ToolStatusApproved).
			Order("categories.name ASC").
			Scan(&rows).Error; errQuery != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		h.cache.SetJSON(ctx, cache.KeyCategoriesWithCounts, rows)
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// categoryRequest defines the request body for creating a category.
type categoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// slugify derives a URL-safe slug from a name.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// Create adds a new category.
func (h *CategoriesHandler) Create(c *gin.Context) {
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		validationError(c, "name", "The name field is required.")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" || len(name) > 255 {
		validationError(c, "name", "The name field is required and may not be greater than 255 characters.")
		return
	}
	slug := strings.TrimSpace(body.Slug)
	if slug == "" {
		slug = slugify(name)
	}

	var count int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Category{}).
		Where("name = ? OR slug = ?", name, slug).Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if count > 0 {
		validationError(c, "name", "The name has already been taken.")
		return
	}

	category := models.Category{Name: name, Slug: slug, Description: strings.TrimSpace(body.Description)}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&category).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create category failed"})
		return
	}

	h.cache.Forget(c.Request.Context(), cache.KeyCategoriesWithCounts, cache.KeyToolCountsByCategory)
	c.JSON(http.StatusCreated, gin.H{"message": "Category created successfully", "data": categoryJSON(category)})
}

// toolCountRow is the cached stats row.
type toolCountRow struct {
	CategoryID uint64 `json:"category_id"`
	Name       string `json:"name"`
	Count      int64  `json:"count"`
}

// ToolCounts returns approved-tool counts per category, cached alongside
// the listing.
func (h *CategoriesHandler) ToolCounts(c *gin.Context) {
	ctx := c.Request.Context()

	var rows []toolCountRow
	if !h.cache.GetJSON(ctx, cache.KeyToolCountsByCategory, &rows) {
		if errQuery := h.db.WithContext(ctx).
			Table("categories").
			Select(`categories.id AS category_id, categories.name,
				(SELECT COUNT(*) FROM tool_categories tc
					JOIN tools t ON t.id = tc.tool_id AND t.status = ?
					WHERE tc.category_id = categories.id) AS count`, models.ToolStatusApproved).
			Order("categories.name ASC").
			Scan(&rows).Error; errQuery != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		h.cache.SetJSON(ctx, cache.KeyToolCountsByCategory, rows)
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}
