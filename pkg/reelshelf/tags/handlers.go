package tags

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	VideoCount int    `json:"video_count"`
}

// List returns tags ordered by how many videos carry them
// @Summary List tags
// @Tags tags
// @Produce json
// @Param q query string false "Substring filter on tag name"
// @Param limit query int false "Max results (default 50, max 200)"
// @Success 200 {array} TagResponse
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	query := h.db.Table("tags").
		Select("tags.id, tags.name, COUNT(DISTINCT video_tags.video_id) AS video_count").
		Joins("LEFT JOIN video_tags ON video_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("video_count DESC, tags.name ASC").
		Limit(limit)

	if q := c.Query("q"); q != "" {
		query = query.Where(`LOWER(tags.name) LIKE ? ESCAPE '\'`, database.ContainsPattern(q))
	}

	var results []TagResponse
	if err := query.Scan(&results).Error; err != nil {
		zap.L().Error("Failed to fetch tags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	if results == nil {
		results = []TagResponse{}
	}
	c.JSON(http.StatusOK, results)
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
}
