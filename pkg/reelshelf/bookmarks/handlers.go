package bookmarks

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/feed"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/notifications"
	"gorm.io/gorm"
)

// Handler handles bookmark requests
type Handler struct {
	db               *gorm.DB
	service          *Service
	builder          *feed.Builder
	defaultAvatarURL string
}

// NewHandler creates a new bookmarks handler. builder supplies the
// visibility rules for reads.
func NewHandler(db *gorm.DB, builder *feed.Builder, notifier *notifications.Notifier, defaultAvatarURL string) *Handler {
	return &Handler{
		db:               db,
		service:          NewService(db, notifier),
		builder:          builder,
		defaultAvatarURL: defaultAvatarURL,
	}
}

// CreateRequest bookmarks an existing video
type CreateRequest struct {
	VideoID uint `json:"video_id" binding:"required"`
	BookmarkInput
}

// ManualCreateRequest bookmarks a video by its source URL
type ManualCreateRequest struct {
	Video    VideoInput    `json:"video"`
	Bookmark BookmarkInput `json:"bookmark"`
}

// CollectRequest copies a bookmark into one of the caller's channels
type CollectRequest struct {
	BookmarkID uint `json:"bookmark_id" binding:"required"`
	ChannelID  uint `json:"channel_id"`
}

// BookmarkResponse is a bookmark detail
type BookmarkResponse struct {
	feed.Entry
	UserID    uint          `json:"user_id"`
	ChannelID uint          `json:"channel_id"`
	Access    models.Access `json:"access"`
	SourceURL string        `json:"source_url"`
	EmbedURL  string        `json:"embed_url"`
	UpdatedAt string        `json:"updated_at"`
}

// PublicUser is a user as listed on another user's content
type PublicUser struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// NewResponse renders a bookmark loaded with the relations feed.NewEntry needs
func NewResponse(b models.Bookmark, defaultAvatarURL string) BookmarkResponse {
	return BookmarkResponse{
		Entry:     feed.NewEntry(b, defaultAvatarURL),
		UserID:    b.UserID,
		ChannelID: b.ChannelID,
		Access:    b.Access,
		SourceURL: b.Video.SourceURL,
		EmbedURL:  b.Video.EmbedURL,
		UpdatedAt: b.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// respondWith reloads a written bookmark with its relations and renders it
func (h *Handler) respondWith(c *gin.Context, status int, b *models.Bookmark) {
	loaded, err := h.builder.Get(c.Request.Context(), b.ID, feed.Viewer{UserID: b.UserID})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(status, NewResponse(*loaded, h.defaultAvatarURL))
}

func parseID(c *gin.Context, param, resource string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + resource + " ID"})
		return 0, false
	}
	return uint(id), true
}

// Create bookmarks an existing video
// @Summary Bookmark a video
// @Tags bookmarks
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Bookmark details"
// @Success 201 {object} BookmarkResponse
// @Failure 400 {object} map[string]string "Validation error or duplicate"
// @Failure 404 {object} map[string]string "Video or channel not found"
// @Security BearerAuth
// @Router /bookmarks/create [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	bookmark, err := h.service.Create(c.Request.Context(), userID, req.VideoID, req.BookmarkInput)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	h.respondWith(c, http.StatusCreated, bookmark)
}

// ManualCreate bookmarks a video given by URL, creating the video if needed
// @Summary Bookmark a video by URL
// @Tags bookmarks
// @Accept json
// @Produce json
// @Param request body ManualCreateRequest true "Video and bookmark details"
// @Success 201 {object} BookmarkResponse
// @Failure 400 {object} map[string]string "Validation error or duplicate"
// @Failure 404 {object} map[string]string "Channel not found"
// @Security BearerAuth
// @Router /bookmarks/manual-create [post]
func (h *Handler) ManualCreate(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ManualCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	bookmark, err := h.service.ManualCreate(c.Request.Context(), userID, req.Video, req.Bookmark)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	h.respondWith(c, http.StatusCreated, bookmark)
}

// Collect copies a visible bookmark into the caller's channel
// @Summary Collect a bookmark
// @Tags bookmarks
// @Accept json
// @Produce json
// @Param request body CollectRequest true "Source bookmark and target channel"
// @Success 201 {object} BookmarkResponse
// @Failure 400 {object} map[string]string "Validation error or duplicate"
// @Failure 404 {object} map[string]string "Bookmark or channel not found"
// @Security BearerAuth
// @Router /bookmarks/collect [post]
func (h *Handler) Collect(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	bookmark, err := h.service.Collect(c.Request.Context(), h.builder, feed.ViewerFrom(c), req.BookmarkID, req.ChannelID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	h.respondWith(c, http.StatusCreated, bookmark)
}

// Get returns one bookmark if the caller may see it
// @Summary Get a bookmark
// @Tags bookmarks
// @Produce json
// @Param id path int true "Bookmark ID"
// @Success 200 {object} BookmarkResponse
// @Failure 404 {object} map[string]string "Bookmark not found"
// @Router /bookmarks/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", "bookmark")
	if !ok {
		return
	}

	bookmark, err := h.builder.Get(c.Request.Context(), id, feed.ViewerFrom(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, NewResponse(*bookmark, h.defaultAvatarURL))
}

// Update edits one of the caller's bookmarks
// @Summary Update a bookmark
// @Tags bookmarks
// @Accept json
// @Produce json
// @Param id path int true "Bookmark ID"
// @Param request body UpdateInput true "Fields to change"
// @Success 200 {object} BookmarkResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Bookmark not found"
// @Security BearerAuth
// @Router /bookmarks/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseID(c, "id", "bookmark")
	if !ok {
		return
	}

	var req UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	bookmark, err := h.service.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	h.respondWith(c, http.StatusOK, bookmark)
}

// UsersBookmarked lists the users with a visible bookmark of a video
// @Summary Users who bookmarked a video
// @Tags bookmarks
// @Produce json
// @Param id path int true "Video ID"
// @Success 200 {array} PublicUser
// @Router /videos/{id}/users-bookmarked [get]
func (h *Handler) UsersBookmarked(c *gin.Context) {
	videoID, ok := parseID(c, "id", "video")
	if !ok {
		return
	}

	visible := h.builder.Policy().Restrict(
		h.db.Table("bookmarks").Select("bookmarks.user_id").Where("bookmarks.video_id = ?", videoID),
		feed.ViewerFrom(c),
	)

	var users []models.User
	if err := h.db.WithContext(c.Request.Context()).Preload("Profile").
		Where("id IN (?)", visible).
		Order("username ASC").
		Find(&users).Error; err != nil {
		apierr.Respond(c, err)
		return
	}

	responses := make([]PublicUser, len(users))
	for i, u := range users {
		responses[i] = PublicUser{ID: u.ID, Username: u.Username, AvatarURL: u.Profile.AvatarURL(h.defaultAvatarURL)}
	}
	c.JSON(http.StatusOK, responses)
}

// RegisterRoutes registers bookmark routes. The feed owns GET /bookmarks.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookmarks/:id", auth.OptionalAuth(), h.Get)
	rg.GET("/videos/:id/users-bookmarked", auth.OptionalAuth(), h.UsersBookmarked)

	protected := rg.Group("", auth.AuthMiddleware())
	protected.POST("/bookmarks/create", h.Create)
	protected.POST("/bookmarks/manual-create", h.ManualCreate)
	protected.POST("/bookmarks/collect", h.Collect)
	protected.PATCH("/bookmarks/:id", h.Update)
}
