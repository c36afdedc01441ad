package reports

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/feed"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles report submissions
type Handler struct {
	db      *gorm.DB
	builder *feed.Builder
}

// NewHandler creates a new reports handler
func NewHandler(db *gorm.DB, builder *feed.Builder) *Handler {
	return &Handler{db: db, builder: builder}
}

// ReportResponse acknowledges a filed report
type ReportResponse struct {
	ID         uint              `json:"id"`
	BookmarkID uint              `json:"bookmark_id"`
	ReportType models.ReportType `json:"report_type"`
	Message    string            `json:"message"`
}

// Create files a report
// @Summary Report a bookmark
// @Description Reports a bookmark, or the bookmark representing a video. The bookmark is hidden until a moderator reviews it.
// @Tags reports
// @Accept json
// @Produce json
// @Param request body Request true "Report"
// @Success 201 {object} ReportResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Bookmark not found"
// @Security BearerAuth
// @Router /report [post]
func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}

	viewer := feed.ViewerFrom(c)
	report, err := File(c.Request.Context(), h.db, h.builder, viewer, req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	zap.L().Info("Report filed",
		zap.Uint("report_id", report.ID),
		zap.Uint("bookmark_id", report.BookmarkID),
		zap.String("report_type", string(report.ReportType)),
		zap.Uint("user_id", viewer.UserID))

	c.JSON(http.StatusCreated, ReportResponse{
		ID:         report.ID,
		BookmarkID: report.BookmarkID,
		ReportType: report.ReportType,
		Message:    "Report submitted. The bookmark is hidden pending review.",
	})
}

// RegisterRoutes registers report routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/report", auth.AuthMiddleware(), h.Create)
}
