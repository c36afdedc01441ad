package feed

import (
	"net/http"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"gorm.io/gorm"
)

// Options configures the feed handler
type Options struct {
	Policy           Policy
	DefaultAvatarURL string
	PageSize         int
	MaxPageSize      int
	// Cache may be nil to disable page caching
	Cache    persist.CacheStore
	CacheTTL time.Duration
}

// Handler serves the feed endpoints
type Handler struct {
	builder *Builder
	opts    Options
}

// NewHandler creates a new feed handler
func NewHandler(db *gorm.DB, opts Options) *Handler {
	return &Handler{builder: NewBuilder(db, opts.Policy), opts: opts}
}

// Builder returns the query builder shared with other packages
func (h *Handler) Builder() *Builder {
	return h.builder
}

// ViewerFrom reads the viewer set by auth.OptionalAuth
func ViewerFrom(c *gin.Context) Viewer {
	userID, _ := auth.GetUserID(c)
	return Viewer{UserID: userID, Moderator: userID != 0 && auth.IsModerator(c)}
}

// List returns one page of the deduplicated feed
// @Summary Bookmark feed
// @Description One bookmark per video, filtered, searched and sorted
// @Tags feed
// @Produce json
// @Param orientation query string false "straight, gay, bi, trans, sfw or all"
// @Param user query string false "Only bookmarks by this username"
// @Param liked_by query string false "Only videos liked by this username"
// @Param following query bool false "Only bookmarks by users the caller follows"
// @Param tag query string false "Only videos carrying this tag"
// @Param q query string false "Search bookmark and video titles, descriptions and tags"
// @Param sort query string false "all, popular or random"
// @Param page query int false "Page number, from 1"
// @Param page_size query int false "Entries per page"
// @Success 200 {object} Response
// @Failure 400 {object} map[string]string "Malformed pagination"
// @Router /bookmarks [get]
func (h *Handler) List(c *gin.Context) {
	p, err := ParseParams(c.Request.URL.Query(), h.opts.PageSize, h.opts.MaxPageSize)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	page, err := h.builder.Page(c.Request.Context(), p, ViewerFrom(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(page, p, h.opts.DefaultAvatarURL))
}

// cached memoizes feed pages keyed by CacheKey. Random pages and requests
// that fail to parse always reach the handler.
func (h *Handler) cached() gin.HandlerFunc {
	if h.opts.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return cache.Cache(h.opts.Cache, h.opts.CacheTTL,
		cache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, cache.Strategy) {
			p, err := ParseParams(c.Request.URL.Query(), h.opts.PageSize, h.opts.MaxPageSize)
			if err != nil || !p.Cacheable() {
				return false, cache.Strategy{}
			}
			return true, cache.Strategy{CacheKey: p.CacheKey(ViewerFrom(c))}
		}),
	)
}

// RegisterRoutes registers the feed on both of its paths
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookmarks", auth.OptionalAuth(), h.cached(), h.List)
	rg.GET("/videos", auth.OptionalAuth(), h.cached(), h.List)
}
