// Package reports files user reports against bookmarks. Filing a report
// hides the bookmark at once; a moderator later approves or denies it.
package reports

import (
	"context"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/feed"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
)

// Request is a report as submitted. Exactly one of BookmarkID and VideoID
// is needed; BookmarkID wins when both are set.
type Request struct {
	BookmarkID uint              `json:"bookmark_id" binding:"required_without=VideoID"`
	VideoID    uint              `json:"video_id" binding:"required_without=BookmarkID"`
	ReportType models.ReportType `json:"report_type" binding:"required,report_type"`
	Notes      string            `json:"notes" binding:"max=2000"`
}

// target resolves the bookmark a request is about, as seen by v. A video id
// resolves to the bookmark currently representing that video in v's feed.
func target(ctx context.Context, builder *feed.Builder, v feed.Viewer, req Request) (*models.Bookmark, error) {
	switch {
	case req.BookmarkID != 0:
		return builder.Get(ctx, req.BookmarkID, v)
	case req.VideoID != 0:
		return builder.Representative(ctx, req.VideoID, v)
	}
	return nil, apierr.Invalid("Either bookmark_id or video_id is required.", "bookmark_id", "video_id")
}

// File creates a report for req and makes the reported bookmark private in
// the same transaction
func File(ctx context.Context, db *gorm.DB, builder *feed.Builder, v feed.Viewer, req Request) (*models.Report, error) {
	if !req.ReportType.Valid() {
		return nil, apierr.Invalid("A valid report_type is required.", "report_type")
	}

	bookmark, err := target(ctx, builder, v, req)
	if err != nil {
		return nil, err
	}

	report := models.Report{
		BookmarkID: bookmark.ID,
		ReportType: req.ReportType,
		Notes:      req.Notes,
	}
	if v.Authenticated() {
		reporter := v.UserID
		report.UserID = &reporter
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return tx.Model(&models.Bookmark{}).
			Where("id = ?", bookmark.ID).
			UpdateColumn("access", models.AccessPrivate).Error
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}
