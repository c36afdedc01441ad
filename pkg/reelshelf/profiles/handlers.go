// Package profiles serves public user profiles and lets owners edit theirs
package profiles

import (
	"net/http"
	"strconv"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/collections"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/feed"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
)

// Options configures the profile handler
type Options struct {
	Policy           feed.Policy
	DefaultAvatarURL string
	// Cache may be nil to disable profile caching
	Cache    persist.CacheStore
	CacheTTL time.Duration
}

// Handler handles profile requests
type Handler struct {
	db          *gorm.DB
	collections *collections.Handler
	opts        Options
}

// NewHandler creates a new profiles handler
func NewHandler(db *gorm.DB, opts Options) *Handler {
	return &Handler{db: db, collections: collections.NewHandler(db), opts: opts}
}

// UpdateProfileRequest lists the profile fields an owner may change
type UpdateProfileRequest struct {
	Bio                                 *string             `json:"bio" binding:"omitempty,max=500"`
	DefaultBookmarkOrientation          *models.Orientation `json:"default_bookmark_orientation" binding:"omitempty,orientation"`
	DefaultBookmarkCollectionID         *uint               `json:"default_bookmark_collection_id"`
	NotifyOnFollow                      *bool               `json:"notify_on_follow"`
	NotifyOnOwnVideoBookmarked          *bool               `json:"notify_on_own_video_bookmarked"`
	NotifyOnNewBookmarkFromFollowedUser *bool               `json:"notify_on_new_bookmark_from_followed_user"`
	NotifyOnOwnVideoLiked               *bool               `json:"notify_on_own_video_liked"`
}

// Preferences are the notification settings, shown to the owner only
type Preferences struct {
	NotifyOnFollow                      bool `json:"notify_on_follow"`
	NotifyOnOwnVideoBookmarked          bool `json:"notify_on_own_video_bookmarked"`
	NotifyOnNewBookmarkFromFollowedUser bool `json:"notify_on_new_bookmark_from_followed_user"`
	NotifyOnOwnVideoLiked               bool `json:"notify_on_own_video_liked"`
}

// ProfileResponse represents a user profile
type ProfileResponse struct {
	UserID                      uint                             `json:"user_id"`
	Username                    string                           `json:"username"`
	Bio                         string                           `json:"bio"`
	AvatarURL                   string                           `json:"avatar_url"`
	JoinedAt                    time.Time                        `json:"joined_at"`
	DefaultBookmarkOrientation  models.Orientation               `json:"default_bookmark_orientation"`
	DefaultBookmarkCollectionID *uint                            `json:"default_bookmark_collection_id"`
	FollowersCount              int64                            `json:"followers_count"`
	FollowingCount              int64                            `json:"following_count"`
	BookmarksCount              int64                            `json:"bookmarks_count"`
	LikesCount                  int64                            `json:"likes_count"`
	IsFollowed                  bool                             `json:"is_followed"`
	IsOwner                     bool                             `json:"is_owner"`
	Collections                 []collections.CollectionResponse `json:"collections"`
	Preferences                 *Preferences                     `json:"preferences,omitempty"`
}

func (h *Handler) findUser(username string) (models.User, error) {
	var user models.User
	if err := h.db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return user, apierr.NotFound("User")
		}
		return user, err
	}
	return user, nil
}

// profileOf loads the user's profile, creating the default one if missing
func (h *Handler) profileOf(userID uint) (models.Profile, error) {
	var profile models.Profile
	err := h.db.Where(models.Profile{UserID: userID}).
		Attrs(models.NewProfile(userID)).
		FirstOrCreate(&profile).Error
	return profile, err
}

func (h *Handler) build(user models.User, v feed.Viewer) (*ProfileResponse, error) {
	profile, err := h.profileOf(user.ID)
	if err != nil {
		return nil, err
	}

	resp := &ProfileResponse{
		UserID:                      user.ID,
		Username:                    user.Username,
		Bio:                         profile.Bio,
		AvatarURL:                   profile.AvatarURL(h.opts.DefaultAvatarURL),
		JoinedAt:                    user.CreatedAt,
		DefaultBookmarkOrientation:  profile.DefaultBookmarkOrientation,
		DefaultBookmarkCollectionID: profile.DefaultBookmarkCollectionID,
		IsOwner:                     v.Authenticated() && v.UserID == user.ID,
	}

	if err := h.db.Model(&models.Follow{}).Where("followed_id = ?", user.ID).Count(&resp.FollowersCount).Error; err != nil {
		return nil, err
	}
	if err := h.db.Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&resp.FollowingCount).Error; err != nil {
		return nil, err
	}
	bookmarks := h.db.Model(&models.Bookmark{}).Where("bookmarks.user_id = ?", user.ID)
	if err := h.opts.Policy.Restrict(bookmarks, v).Count(&resp.BookmarksCount).Error; err != nil {
		return nil, err
	}
	if err := h.db.Model(&models.VideoLike{}).Where("user_id = ?", user.ID).Count(&resp.LikesCount).Error; err != nil {
		return nil, err
	}
	if v.Authenticated() && !resp.IsOwner {
		var followed int64
		h.db.Model(&models.Follow{}).
			Where("follower_id = ? AND followed_id = ?", v.UserID, user.ID).
			Count(&followed)
		resp.IsFollowed = followed > 0
	}

	cols, err := collections.ForUser(h.db, user.ID)
	if err != nil {
		return nil, err
	}
	if resp.Collections, err = h.collections.Render(cols); err != nil {
		return nil, err
	}

	if resp.IsOwner {
		resp.Preferences = &Preferences{
			NotifyOnFollow:                      profile.NotifyOnFollow,
			NotifyOnOwnVideoBookmarked:          profile.NotifyOnOwnVideoBookmarked,
			NotifyOnNewBookmarkFromFollowedUser: profile.NotifyOnNewBookmarkFromFollowedUser,
			NotifyOnOwnVideoLiked:               profile.NotifyOnOwnVideoLiked,
		}
	}
	return resp, nil
}

// Get returns a user's profile
// @Summary Get profile
// @Tags profiles
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} ProfileResponse
// @Failure 404 {object} map[string]string "User not found"
// @Router /profile/{username} [get]
func (h *Handler) Get(c *gin.Context) {
	user, err := h.findUser(c.Param("username"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	resp, err := h.build(user, feed.ViewerFrom(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update changes the caller's own profile
// @Summary Update profile
// @Tags profiles
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param request body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not your profile"
// @Failure 404 {object} map[string]string "User or collection not found"
// @Security BearerAuth
// @Router /profile/{username} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	user, err := h.findUser(c.Param("username"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if user.ID != userID {
		apierr.Respond(c, apierr.Forbidden("You can only edit your own profile"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	profile, err := h.profileOf(user.ID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.DefaultBookmarkOrientation != nil {
		updates["default_bookmark_orientation"] = *req.DefaultBookmarkOrientation
	}
	if req.DefaultBookmarkCollectionID != nil {
		if *req.DefaultBookmarkCollectionID == 0 {
			updates["default_bookmark_collection_id"] = nil
		} else {
			var owned int64
			h.db.Model(&models.Collection{}).
				Where("id = ? AND user_id = ?", *req.DefaultBookmarkCollectionID, user.ID).
				Count(&owned)
			if owned == 0 {
				apierr.Respond(c, apierr.NotFound("Collection"))
				return
			}
			updates["default_bookmark_collection_id"] = *req.DefaultBookmarkCollectionID
		}
	}
	if req.NotifyOnFollow != nil {
		updates["notify_on_follow"] = *req.NotifyOnFollow
	}
	if req.NotifyOnOwnVideoBookmarked != nil {
		updates["notify_on_own_video_bookmarked"] = *req.NotifyOnOwnVideoBookmarked
	}
	if req.NotifyOnNewBookmarkFromFollowedUser != nil {
		updates["notify_on_new_bookmark_from_followed_user"] = *req.NotifyOnNewBookmarkFromFollowedUser
	}
	if req.NotifyOnOwnVideoLiked != nil {
		updates["notify_on_own_video_liked"] = *req.NotifyOnOwnVideoLiked
	}

	if len(updates) > 0 {
		if err := h.db.Model(&profile).Updates(updates).Error; err != nil {
			apierr.Respond(c, err)
			return
		}
	}

	resp, err := h.build(user, feed.ViewerFrom(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// cacheKey scopes a cached profile to the username and the viewer, since
// owners see their preferences and private bookmark counts
func cacheKey(c *gin.Context) string {
	key := "profile:" + c.Param("username") + ":"
	v := feed.ViewerFrom(c)
	switch {
	case v.Moderator:
		return key + "mod" + strconv.FormatUint(uint64(v.UserID), 10)
	case v.Authenticated():
		return key + "user" + strconv.FormatUint(uint64(v.UserID), 10)
	}
	return key + "anon"
}

func (h *Handler) cached() gin.HandlerFunc {
	if h.opts.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return cache.Cache(h.opts.Cache, h.opts.CacheTTL,
		cache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, cache.Strategy) {
			return true, cache.Strategy{CacheKey: cacheKey(c)}
		}),
	)
}

// RegisterRoutes registers profile routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile/:username", auth.OptionalAuth(), h.cached(), h.Get)
	rg.PATCH("/profile/:username", auth.AuthMiddleware(), h.Update)
}
