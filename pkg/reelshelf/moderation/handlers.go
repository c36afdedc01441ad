package moderation

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/bookmarks"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/database"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/feed"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/tags"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles moderator and admin requests
type Handler struct {
	db               *gorm.DB
	service          *Service
	builder          *feed.Builder
	defaultAvatarURL string
}

// NewHandler creates a new moderation handler
func NewHandler(db *gorm.DB, builder *feed.Builder, defaultAvatarURL string) *Handler {
	return &Handler{
		db:               db,
		service:          NewService(db),
		builder:          builder,
		defaultAvatarURL: defaultAvatarURL,
	}
}

// ReportActionRequest names the report an action applies to
type ReportActionRequest struct {
	ReportID uint `json:"report_id" binding:"required"`
}

// EditBookmarkRequest is a moderator correction to a bookmark
type EditBookmarkRequest struct {
	BookmarkID uint `json:"bookmark_id" binding:"required"`
	BookmarkEdit
}

// EditVideoRequest is a moderator correction to a video
type EditVideoRequest struct {
	VideoID uint `json:"video_id" binding:"required"`
	VideoEdit
}

// UpdateUserRequest changes a user's system role (admin only)
type UpdateUserRequest struct {
	SystemRole models.SystemRole `json:"system_role" binding:"required,oneof=admin moderator user"`
}

// AssignmentResponse represents a report assignment
type AssignmentResponse struct {
	ReportID    uint   `json:"report_id"`
	ModeratorID uint   `json:"moderator_id"`
	AssignedAt  string `json:"assigned_at"`
}

// ReportResponse represents a report in moderation listings
type ReportResponse struct {
	ID               uint                `json:"id"`
	BookmarkID       uint                `json:"bookmark_id"`
	BookmarkTitle    string              `json:"bookmark_title"`
	VideoID          uint                `json:"video_id"`
	ReporterUsername string              `json:"reporter_username,omitempty"`
	ReportType       models.ReportType   `json:"report_type"`
	Notes            string              `json:"notes"`
	IsResolved       bool                `json:"is_resolved"`
	Resolution       models.Resolution   `json:"resolution,omitempty"`
	ResolvedAt       *string             `json:"resolved_at"`
	CreatedAt        string              `json:"created_at"`
	Assignment       *AssignmentResponse `json:"assignment,omitempty"`
}

// VideoResponse represents a video in moderation responses
type VideoResponse struct {
	ID           uint               `json:"id"`
	Title        string             `json:"title"`
	SourceURL    string             `json:"source_url"`
	ThumbnailURL string             `json:"thumbnail_url"`
	EmbedURL     string             `json:"embed_url"`
	Orientation  models.Orientation `json:"orientation"`
	LikesCount   uint               `json:"likes_count"`
	Tags         []string           `json:"tags"`
}

// AuditLogResponse represents an audit log entry
type AuditLogResponse struct {
	ID                uint               `json:"id"`
	ModeratorID       uint               `json:"moderator_id"`
	ModeratorUsername string             `json:"moderator_username"`
	Action            models.AuditAction `json:"action"`
	VideoID           *uint              `json:"video_id"`
	BookmarkID        *uint              `json:"bookmark_id"`
	ReportID          *uint              `json:"report_id"`
	Details           string             `json:"details"`
	CreatedAt         string             `json:"created_at"`
}

// UserResponse represents a user in admin responses
type UserResponse struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	SystemRole    string `json:"system_role"`
	CreatedAt     string `json:"created_at"`
	BookmarkCount int64  `json:"bookmark_count"`
}

// StatsResponse represents moderation statistics
type StatsResponse struct {
	TotalUsers       int64 `json:"total_users"`
	TotalVideos      int64 `json:"total_videos"`
	TotalBookmarks   int64 `json:"total_bookmarks"`
	PublicBookmarks  int64 `json:"public_bookmarks"`
	AdultBookmarks   int64 `json:"adult_bookmarks"`
	PrivateBookmarks int64 `json:"private_bookmarks"`
	TotalTags        int64 `json:"total_tags"`
	TotalLikes       int64 `json:"total_likes"`
	OpenReports      int64 `json:"open_reports"`
	Moderators       int64 `json:"moderators"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func assignmentToResponse(a *models.ModeratorAssignment) *AssignmentResponse {
	if a == nil {
		return nil
	}
	return &AssignmentResponse{
		ReportID:    a.ReportID,
		ModeratorID: a.ModeratorID,
		AssignedAt:  a.AssignedAt.UTC().Format(timeFormat),
	}
}

func reportToResponse(r models.Report) ReportResponse {
	resp := ReportResponse{
		ID:            r.ID,
		BookmarkID:    r.BookmarkID,
		BookmarkTitle: r.Bookmark.Title,
		VideoID:       r.Bookmark.VideoID,
		ReportType:    r.ReportType,
		Notes:         r.Notes,
		IsResolved:    r.IsResolved,
		Resolution:    r.Resolution,
		CreatedAt:     r.CreatedAt.UTC().Format(timeFormat),
		Assignment:    assignmentToResponse(r.Assignment),
	}
	if r.User != nil {
		resp.ReporterUsername = r.User.Username
	}
	if r.ResolvedAt != nil {
		resolved := r.ResolvedAt.UTC().Format(timeFormat)
		resp.ResolvedAt = &resolved
	}
	return resp
}

func videoToResponse(v models.Video) VideoResponse {
	return VideoResponse{
		ID:           v.ID,
		Title:        v.Title,
		SourceURL:    v.SourceURL,
		ThumbnailURL: v.ThumbnailURL,
		EmbedURL:     v.EmbedURL,
		Orientation:  v.Orientation,
		LikesCount:   v.LikesCount,
		Tags:         tags.Names(v.Tags),
	}
}

// respondReport reloads a report with its relations and renders it
func (h *Handler) respondReport(c *gin.Context, reportID uint) {
	var report models.Report
	if err := h.db.Preload("Bookmark").Preload("User").Preload("Assignment").
		First(&report, reportID).Error; err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, reportToResponse(report))
}

// Reports lists reports awaiting review, newest first
// @Summary List open reports
// @Tags moderation
// @Produce json
// @Param all query bool false "Include resolved reports"
// @Success 200 {array} ReportResponse
// @Security BearerAuth
// @Router /moderation/reports [get]
func (h *Handler) Reports(c *gin.Context) {
	query := h.db.Preload("Bookmark").Preload("User").Preload("Assignment").
		Order("created_at DESC").Order("id DESC")
	if c.Query("all") != "true" {
		query = query.Where("is_resolved = ?", false)
	}

	var reports []models.Report
	if err := query.Find(&reports).Error; err != nil {
		apierr.Respond(c, err)
		return
	}

	responses := make([]ReportResponse, len(reports))
	for i, r := range reports {
		responses[i] = reportToResponse(r)
	}
	c.JSON(http.StatusOK, responses)
}

// Assign takes ownership of a report
// @Summary Assign a report to the caller
// @Tags moderation
// @Accept json
// @Produce json
// @Param request body ReportActionRequest true "Report"
// @Success 200 {object} AssignmentResponse
// @Failure 400 {object} map[string]string "Report already resolved"
// @Failure 404 {object} map[string]string "Report not found"
// @Security BearerAuth
// @Router /moderation/assign [put]
func (h *Handler) Assign(c *gin.Context) {
	moderatorID, _ := auth.GetUserID(c)
	username, _ := auth.GetUsername(c)

	var req ReportActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	assignment, err := h.service.Assign(c.Request.Context(), moderatorID, username, req.ReportID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, assignmentToResponse(assignment))
}

// Approve upholds a report; the bookmark stays hidden
// @Summary Approve a report
// @Tags moderation
// @Accept json
// @Produce json
// @Param request body ReportActionRequest true "Report"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} map[string]string "Report already resolved"
// @Failure 404 {object} map[string]string "Report not found"
// @Security BearerAuth
// @Router /moderation/approve [put]
func (h *Handler) Approve(c *gin.Context) {
	h.resolve(c, h.service.Approve)
}

// Deny rejects a report and restores the bookmark
// @Summary Deny a report
// @Tags moderation
// @Accept json
// @Produce json
// @Param request body ReportActionRequest true "Report"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} map[string]string "Report already resolved"
// @Failure 404 {object} map[string]string "Report not found"
// @Security BearerAuth
// @Router /moderation/deny [put]
func (h *Handler) Deny(c *gin.Context) {
	h.resolve(c, h.service.Deny)
}

func (h *Handler) resolve(c *gin.Context, action func(ctx context.Context, moderatorID, reportID uint) (*models.Report, error)) {
	moderatorID, _ := auth.GetUserID(c)

	var req ReportActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	report, err := action(c.Request.Context(), moderatorID, req.ReportID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	zap.L().Info("Report resolved",
		zap.Uint("report_id", report.ID),
		zap.Uint("moderator_id", moderatorID),
		zap.String("resolution", string(report.Resolution)))
	h.respondReport(c, report.ID)
}

// EditBookmark corrects any bookmark
// @Summary Edit a bookmark as moderator
// @Tags moderation
// @Accept json
// @Produce json
// @Param request body EditBookmarkRequest true "Bookmark and fields to change"
// @Success 200 {object} bookmarks.BookmarkResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Bookmark not found"
// @Security BearerAuth
// @Router /moderation/edit-bookmark [put]
func (h *Handler) EditBookmark(c *gin.Context) {
	moderatorID, _ := auth.GetUserID(c)

	var req EditBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	if err := h.service.EditBookmark(c.Request.Context(), moderatorID, req.BookmarkID, req.BookmarkEdit); err != nil {
		apierr.Respond(c, err)
		return
	}

	bookmark, err := h.builder.Get(c.Request.Context(), req.BookmarkID, feed.Viewer{UserID: moderatorID, Moderator: true})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarks.NewResponse(*bookmark, h.defaultAvatarURL))
}

// EditVideo corrects a video
// @Summary Edit a video as moderator
// @Tags moderation
// @Accept json
// @Produce json
// @Param request body EditVideoRequest true "Video and fields to change"
// @Success 200 {object} VideoResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Video not found"
// @Security BearerAuth
// @Router /moderation/edit-video [put]
func (h *Handler) EditVideo(c *gin.Context) {
	moderatorID, _ := auth.GetUserID(c)

	var req EditVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	video, err := h.service.EditVideo(c.Request.Context(), moderatorID, req.VideoID, req.VideoEdit)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, videoToResponse(*video))
}

// LookupBookmark returns any bookmark whatever its access
// @Summary Look up a bookmark
// @Tags moderation
// @Produce json
// @Param id path int true "Bookmark ID"
// @Success 200 {object} bookmarks.BookmarkResponse
// @Failure 404 {object} map[string]string "Bookmark not found"
// @Security BearerAuth
// @Router /moderation/lookup-bookmark/{id} [get]
func (h *Handler) LookupBookmark(c *gin.Context) {
	moderatorID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bookmark ID"})
		return
	}

	bookmark, err := h.builder.Get(c.Request.Context(), uint(id), feed.Viewer{UserID: moderatorID, Moderator: true})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarks.NewResponse(*bookmark, h.defaultAvatarURL))
}

// AuditLog lists moderator actions, newest first (admin only)
// @Summary Audit log
// @Tags moderation
// @Produce json
// @Param limit query int false "Max results (default 100, max 500)"
// @Success 200 {array} AuditLogResponse
// @Security BearerAuth
// @Router /moderation/audit-log [get]
func (h *Handler) AuditLog(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	var entries []models.AuditLog
	if err := h.db.Preload("Moderator").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		apierr.Respond(c, err)
		return
	}

	responses := make([]AuditLogResponse, len(entries))
	for i, e := range entries {
		responses[i] = AuditLogResponse{
			ID:                e.ID,
			ModeratorID:       e.ModeratorID,
			ModeratorUsername: e.Moderator.Username,
			Action:            e.Action,
			VideoID:           e.VideoID,
			BookmarkID:        e.BookmarkID,
			ReportID:          e.ReportID,
			Details:           e.Details,
			CreatedAt:         e.CreatedAt.UTC().Format(timeFormat),
		}
	}
	c.JSON(http.StatusOK, responses)
}

func (h *Handler) userToResponse(user models.User) UserResponse {
	var bookmarkCount int64
	h.db.Model(&models.Bookmark{}).Where("user_id = ?", user.ID).Count(&bookmarkCount)
	return UserResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		SystemRole:    string(user.SystemRole),
		CreatedAt:     user.CreatedAt.UTC().Format(timeFormat),
		BookmarkCount: bookmarkCount,
	}
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Tags moderation
// @Produce json
// @Param q query string false "Search username or email"
// @Param role query string false "Filter by system role"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /moderation/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	query := h.db.Order("created_at DESC")

	if search := c.Query("q"); search != "" {
		pattern := database.ContainsPattern(search)
		query = query.Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		apierr.Respond(c, err)
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.userToResponse(user)
	}
	c.JSON(http.StatusOK, responses)
}

// UpdateUser changes a user's system role (admin only)
// @Summary Set a user's role
// @Tags moderation
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "New role"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /moderation/users/{id} [patch]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		apierr.Respond(c, apierr.NotFound("User"))
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID && req.SystemRole != models.SystemRoleAdmin {
		apierr.Respond(c, apierr.Invalid("Cannot demote yourself.", "system_role"))
		return
	}

	if err := h.db.Model(&user).Update("system_role", req.SystemRole).Error; err != nil {
		apierr.Respond(c, err)
		return
	}
	user.SystemRole = req.SystemRole
	c.JSON(http.StatusOK, h.userToResponse(user))
}

// Stats returns content and moderation statistics (admin only)
// @Summary Moderation statistics
// @Tags moderation
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /moderation/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.Video{}).Count(&stats.TotalVideos)
	h.db.Model(&models.Bookmark{}).Count(&stats.TotalBookmarks)
	h.db.Model(&models.Tag{}).Count(&stats.TotalTags)
	h.db.Model(&models.VideoLike{}).Count(&stats.TotalLikes)

	h.db.Model(&models.Bookmark{}).Where("access = ?", models.AccessPublic).Count(&stats.PublicBookmarks)
	h.db.Model(&models.Bookmark{}).Where("access = ?", models.AccessAdult).Count(&stats.AdultBookmarks)
	h.db.Model(&models.Bookmark{}).Where("access = ?", models.AccessPrivate).Count(&stats.PrivateBookmarks)
	h.db.Model(&models.Report{}).Where("is_resolved = ?", false).Count(&stats.OpenReports)
	h.db.Model(&models.User{}).Where("system_role IN ?", []models.SystemRole{models.SystemRoleModerator, models.SystemRoleAdmin}).Count(&stats.Moderators)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers moderation routes. Report and content actions
// need the moderator role; the audit log and user administration need admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	mod := rg.Group("/moderation", auth.AuthMiddleware(), auth.RequireModerator())
	mod.GET("/reports", h.Reports)
	mod.GET("/lookup-bookmark/:id", h.LookupBookmark)
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		mod.Handle(method, "/assign", h.Assign)
		mod.Handle(method, "/approve", h.Approve)
		mod.Handle(method, "/deny", h.Deny)
		mod.Handle(method, "/edit-bookmark", h.EditBookmark)
		mod.Handle(method, "/edit-video", h.EditVideo)
	}

	admin := mod.Group("", auth.RequireAdmin())
	admin.GET("/audit-log", h.AuditLog)
	admin.GET("/stats", h.Stats)
	admin.GET("/users", h.ListUsers)
	admin.PATCH("/users/:id", h.UpdateUser)
}
