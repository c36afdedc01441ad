// Package follows manages the directed follow graph between users
package follows

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/notifications"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler handles follow requests
type Handler struct {
	db               *gorm.DB
	notifier         *notifications.Notifier
	defaultAvatarURL string
}

// NewHandler creates a new follows handler. notifier may be nil.
func NewHandler(db *gorm.DB, notifier *notifications.Notifier, defaultAvatarURL string) *Handler {
	return &Handler{db: db, notifier: notifier, defaultAvatarURL: defaultAvatarURL}
}

// FollowUser is one entry of a followers or following list
type FollowUser struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	AvatarURL  string `json:"avatar_url"`
	FollowedAt string `json:"followed_at"`
}

// Toggle follows followedID on behalf of followerID, or unfollows if the
// edge already exists. It reports whether the edge exists afterwards.
func Toggle(ctx context.Context, db *gorm.DB, followerID, followedID uint) (bool, error) {
	if followerID == followedID {
		return false, apierr.Invalid("You cannot follow yourself.", "user_id")
	}

	var followed bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.Select("id").First(&target, followedID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apierr.NotFound("User")
			}
			return err
		}

		removed := tx.Where("follower_id = ? AND followed_id = ?", followerID, followedID).Delete(&models.Follow{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected > 0 {
			return nil
		}

		followed = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: followerID, FollowedID: followedID}).Error
	})
	return followed, err
}

func targetID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return uint(id), true
}

// Toggle follows or unfollows a user
// @Summary Toggle follow
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "Cannot follow yourself"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id}/toggle-follow [post]
func (h *Handler) Toggle(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := targetID(c)
	if !ok {
		return
	}

	followed, err := Toggle(c.Request.Context(), h.db, userID, id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if followed && h.notifier != nil {
		h.notifier.Send(notifications.Event{
			RecipientID: id,
			ActorID:     userID,
			Type:        models.NotificationFollow,
			Verb:        "started following you",
			Target:      models.NotificationTarget{Kind: models.TargetUser, ObjectID: userID},
		})
	}

	c.JSON(http.StatusOK, gin.H{"is_followed": followed})
}

// Status reports whether the caller follows a user
// @Summary Follow status
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Security BearerAuth
// @Router /users/{id}/follow-status [get]
func (h *Handler) Status(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := targetID(c)
	if !ok {
		return
	}

	var count int64
	if err := h.db.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", userID, id).
		Count(&count).Error; err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_followed": count > 0})
}

// list renders the far side of id's follow edges. column selects which
// side id is on.
func (h *Handler) list(c *gin.Context, column, preload string) ([]FollowUser, bool) {
	id, ok := targetID(c)
	if !ok {
		return nil, false
	}

	var user models.User
	if err := h.db.Select("id").First(&user, id).Error; err != nil {
		apierr.Respond(c, apierr.NotFound("User"))
		return nil, false
	}

	var edges []models.Follow
	if err := h.db.Preload(preload+".Profile").
		Where(column+" = ?", id).
		Order("created_at DESC").
		Find(&edges).Error; err != nil {
		apierr.Respond(c, err)
		return nil, false
	}

	users := make([]FollowUser, len(edges))
	for i, e := range edges {
		other := e.Followed
		if preload == "Follower" {
			other = e.Follower
		}
		users[i] = FollowUser{
			ID:         other.ID,
			Username:   other.Username,
			AvatarURL:  other.Profile.AvatarURL(h.defaultAvatarURL),
			FollowedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return users, true
}

// Followers lists the users following a user
// @Summary List followers
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string][]FollowUser
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id}/followers [get]
func (h *Handler) Followers(c *gin.Context) {
	users, ok := h.list(c, "followed_id", "Follower")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": users})
}

// Following lists the users a user follows
// @Summary List followed users
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string][]FollowUser
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id}/following [get]
func (h *Handler) Following(c *gin.Context) {
	users, ok := h.list(c, "follower_id", "Followed")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": users})
}

// RegisterRoutes registers follow routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users", auth.AuthMiddleware())
	users.POST("/:id/toggle-follow", h.Toggle)
	users.GET("/:id/follow-status", h.Status)
	users.GET("/:id/followers", h.Followers)
	users.GET("/:id/following", h.Following)
}
