// Package server assembles the HTTP API from the domain handlers
package server

import (
	"net/http"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/bookmarks"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/collections"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/config"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/feed"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/follows"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/importexport"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/likes"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/middleware"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/moderation"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/notifications"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/profiles"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/reports"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/tags"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewRouter builds the gin engine. store may be nil to disable page
// caching and limiter may be nil to disable rate limiting.
func NewRouter(cfg *config.Config, db *gorm.DB, store persist.CacheStore, limiter *middleware.RateLimiter) *gin.Engine {
	validation.Register()

	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.Host.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.RequestID(),
		middleware.AccessLog(zap.L()),
		middleware.Recovery(zap.L()),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "reelshelf",
		})
	})

	policy := feed.Policy{IncludeAdult: cfg.Feed.IncludeAdult}
	avatar := cfg.Media.DefaultAvatarURL

	// One builder and one notifier are shared so every endpoint applies the
	// same visibility rules and notification preferences.
	feedHandler := feed.NewHandler(db, feed.Options{
		Policy:           policy,
		DefaultAvatarURL: avatar,
		PageSize:         cfg.Feed.PageSize,
		MaxPageSize:      cfg.Feed.MaxPageSize,
		Cache:            store,
		CacheTTL:         cfg.Cache.FeedTTL,
	})
	builder := feedHandler.Builder()
	notifier := notifications.NewNotifier(db)

	auth.NewHandler(db).RegisterRoutes(api.Group("/auth"))
	feedHandler.RegisterRoutes(api)
	bookmarks.NewHandler(db, builder, notifier, avatar).RegisterRoutes(api)
	collections.NewHandler(db).RegisterRoutes(api)
	tags.NewHandler(db).RegisterRoutes(api)
	likes.NewHandler(db, notifier).RegisterRoutes(api)
	follows.NewHandler(db, notifier, avatar).RegisterRoutes(api)
	reports.NewHandler(db, builder).RegisterRoutes(api)
	moderation.NewHandler(db, builder, avatar).RegisterRoutes(api)
	notifications.NewHandler(db).RegisterRoutes(api)
	profiles.NewHandler(db, profiles.Options{
		Policy:           policy,
		DefaultAvatarURL: avatar,
		Cache:            store,
		CacheTTL:         cfg.Cache.ProfileTTL,
	}).RegisterRoutes(api)
	importexport.NewHandler(db, notifier).RegisterRoutes(api)

	return router
}
