// Package notifications stores and serves per-user notifications
package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
)

// Handler handles notification requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new notifications handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID            uint                      `json:"id"`
	Verb          string                    `json:"verb"`
	Type          models.NotificationType   `json:"notification_type"`
	Target        models.NotificationTarget `json:"target"`
	ActorUsername string                    `json:"actor_username,omitempty"`
	IsRead        bool                      `json:"is_read"`
	CreatedAt     string                    `json:"created_at"`
}

func notificationToResponse(n models.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Verb:      n.Verb,
		Type:      n.Type,
		Target:    n.Target,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if n.Actor != nil {
		resp.ActorUsername = n.Actor.Username
	}
	return resp
}

// List returns the caller's notifications, newest first
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param limit query int false "Max results (default 50, max 200)"
// @Success 200 {array} NotificationResponse
// @Security BearerAuth
// @Router /notifications [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	query := h.db.Preload("Actor").Where("recipient_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		apierr.Respond(c, err)
		return
	}

	responses := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = notificationToResponse(n)
	}
	c.JSON(http.StatusOK, responses)
}

// UnreadCount returns how many notifications the caller has not read
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var count int64
	if err := h.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkRead marks one of the caller's notifications as read
// @Summary Mark a notification read
// @Tags notifications
// @Param id path int true "Notification ID"
// @Success 200 {object} NotificationResponse
// @Failure 404 {object} map[string]string "Notification not found"
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	var notification models.Notification
	if err := h.db.Preload("Actor").
		Where("id = ? AND recipient_id = ?", id, userID).
		First(&notification).Error; err != nil {
		apierr.Respond(c, apierr.NotFound("Notification"))
		return
	}

	if !notification.IsRead {
		if err := h.db.Model(&notification).Update("is_read", true).Error; err != nil {
			apierr.Respond(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, notificationToResponse(notification))
}

// MarkAllRead marks every notification of the caller as read
// @Summary Mark all notifications read
// @Tags notifications
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	result := h.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		apierr.Respond(c, result.Error)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": result.RowsAffected})
}

// RegisterRoutes registers notification routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications", auth.AuthMiddleware())
	notifications.GET("", h.List)
	notifications.GET("/unread-count", h.UnreadCount)
	notifications.POST("/:id/read", h.MarkRead)
	notifications.POST("/read-all", h.MarkAllRead)
}
