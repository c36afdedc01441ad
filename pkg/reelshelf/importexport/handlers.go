package importexport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/bookmarks"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/notifications"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/tags"
	"gorm.io/gorm"
)

// Handler handles import/export requests
type Handler struct {
	db      *gorm.DB
	service *bookmarks.Service
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB, notifier *notifications.Notifier) *Handler {
	return &Handler{db: db, service: bookmarks.NewService(db, notifier)}
}

// ExportBookmark is one bookmark together with the video it points at
type ExportBookmark struct {
	SourceURL    string             `json:"source_url"`
	VideoTitle   string             `json:"video_title"`
	ThumbnailURL string             `json:"thumbnail_url"`
	EmbedURL     string             `json:"embed_url"`
	Orientation  models.Orientation `json:"orientation"`
	VideoTags    []string           `json:"video_tags"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Access       models.Access      `json:"access"`
	Tags         []string           `json:"tags"`
	Channel      string             `json:"channel"`
	Collection   string             `json:"collection"`
	CreatedAt    string             `json:"created_at"`
}

// ImportRequest represents an import request. A zero ChannelID imports
// into the caller's default channel.
type ImportRequest struct {
	ChannelID uint             `json:"channel_id"`
	Bookmarks []ExportBookmark `json:"bookmarks" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Import files exported bookmarks into one of the caller's channels.
// Bookmarks already present in that channel are skipped.
// @Summary Import bookmarks
// @Tags importexport
// @Accept json
// @Produce json
// @Param request body ImportRequest true "Bookmarks to import"
// @Success 200 {object} ImportResult
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Channel not found"
// @Security BearerAuth
// @Router /import [post]
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	if req.ChannelID != 0 {
		if _, err := h.ownChannel(userID, req.ChannelID); err != nil {
			apierr.Respond(c, err)
			return
		}
	}

	result := ImportResult{Errors: []string{}}
	for i, b := range req.Bookmarks {
		video := bookmarks.VideoInput{
			SourceURL:    b.SourceURL,
			Title:        b.VideoTitle,
			ThumbnailURL: b.ThumbnailURL,
			EmbedURL:     b.EmbedURL,
			Orientation:  b.Orientation,
			Tags:         b.VideoTags,
		}
		if video.Title == "" {
			video.Title = b.Title
		}
		input := bookmarks.BookmarkInput{
			ChannelID:   req.ChannelID,
			Title:       b.Title,
			Description: b.Description,
			Access:      b.Access,
			Tags:        b.Tags,
		}

		if err := binding.Validator.ValidateStruct(video); err != nil {
			result.Errors = append(result.Errors, "bookmark "+strconv.Itoa(i)+": "+apierr.FromBinding(err).Message)
			result.Failed++
			continue
		}
		if err := binding.Validator.ValidateStruct(input); err != nil {
			result.Errors = append(result.Errors, "bookmark "+strconv.Itoa(i)+": "+apierr.FromBinding(err).Message)
			result.Failed++
			continue
		}

		if _, err := h.service.ManualCreate(c.Request.Context(), userID, video, input); err != nil {
			if bookmarks.IsDuplicate(err) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, "bookmark "+strconv.Itoa(i)+": "+err.Error())
			result.Failed++
			continue
		}
		result.Imported++
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ownChannel(userID, channelID uint) (models.Channel, error) {
	var channel models.Channel
	err := h.db.Joins("JOIN collections ON collections.id = channels.collection_id").
		Where("channels.id = ? AND collections.user_id = ?", channelID, userID).
		First(&channel).Error
	if err == gorm.ErrRecordNotFound {
		return channel, apierr.NotFound("Channel")
	}
	return channel, err
}

// Export returns the caller's bookmarks, newest first
// @Summary Export bookmarks
// @Tags importexport
// @Produce json
// @Param channel_id query int false "Only this channel"
// @Param download query bool false "Send as an attachment"
// @Success 200 {array} ExportBookmark
// @Failure 404 {object} map[string]string "Channel not found"
// @Security BearerAuth
// @Router /export [get]
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	query := h.db.Preload("Tags").Preload("Video.Tags").Preload("Channel.Collection").
		Where("user_id = ?", userID)

	if channelIDStr := c.Query("channel_id"); channelIDStr != "" {
		channelID, err := strconv.ParseUint(channelIDStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel ID"})
			return
		}
		if _, err := h.ownChannel(userID, uint(channelID)); err != nil {
			apierr.Respond(c, err)
			return
		}
		query = query.Where("channel_id = ?", channelID)
	}

	var rows []models.Bookmark
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		apierr.Respond(c, err)
		return
	}

	exported := make([]ExportBookmark, len(rows))
	for i, b := range rows {
		exported[i] = ExportBookmark{
			SourceURL:    b.Video.SourceURL,
			VideoTitle:   b.Video.Title,
			ThumbnailURL: b.Video.ThumbnailURL,
			EmbedURL:     b.Video.EmbedURL,
			Orientation:  b.Video.Orientation,
			VideoTags:    tags.Names(b.Video.Tags),
			Title:        b.Title,
			Description:  b.Description,
			Access:       b.Access,
			Tags:         tags.Names(b.Tags),
			Channel:      b.Channel.Name,
			Collection:   b.Channel.Collection.Name,
			CreatedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=reelshelf-export.json")
	}
	c.JSON(http.StatusOK, exported)
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", auth.AuthMiddleware(), h.Import)
	rg.GET("/export", auth.AuthMiddleware(), h.Export)
}
