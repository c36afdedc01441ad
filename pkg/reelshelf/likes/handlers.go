package likes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/notifications"
	"gorm.io/gorm"
)

// Handler handles like requests
type Handler struct {
	db       *gorm.DB
	notifier *notifications.Notifier
}

// NewHandler creates a new likes handler. notifier may be nil.
func NewHandler(db *gorm.DB, notifier *notifications.Notifier) *Handler {
	return &Handler{db: db, notifier: notifier}
}

func videoID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video ID"})
		return 0, false
	}
	return uint(id), true
}

// Toggle likes or unlikes a video
// @Summary Toggle a like
// @Tags likes
// @Produce json
// @Param id path int true "Video ID"
// @Success 200 {object} Status
// @Failure 404 {object} map[string]string "Video not found"
// @Security BearerAuth
// @Router /videos/{id}/like [post]
func (h *Handler) Toggle(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := videoID(c)
	if !ok {
		return
	}

	status, err := Toggle(c.Request.Context(), h.db, userID, id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if status.IsLiked && h.notifier != nil {
		var video models.Video
		if err := h.db.Select("id", "created_by_id").First(&video, id).Error; err == nil && video.CreatedByID != nil {
			h.notifier.Send(notifications.Event{
				RecipientID: *video.CreatedByID,
				ActorID:     userID,
				Type:        models.NotificationVideoLike,
				Verb:        "liked your video",
				Target:      models.NotificationTarget{Kind: models.TargetVideo, ObjectID: id},
			})
		}
	}

	c.JSON(http.StatusOK, status)
}

// Status reports whether the caller likes a video
// @Summary Like status
// @Tags likes
// @Produce json
// @Param id path int true "Video ID"
// @Success 200 {object} Status
// @Failure 404 {object} map[string]string "Video not found"
// @Security BearerAuth
// @Router /videos/{id}/like-status [get]
func (h *Handler) Status(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := videoID(c)
	if !ok {
		return
	}

	status, err := Get(c.Request.Context(), h.db, userID, id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// RegisterRoutes registers like routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/videos/:id/like", auth.AuthMiddleware(), h.Toggle)
	rg.GET("/videos/:id/like-status", auth.AuthMiddleware(), h.Status)
}
