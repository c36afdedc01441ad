// Package moderation resolves reports and lets moderators correct bookmarks
// and videos. Every action is recorded in the audit log.
package moderation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/tags"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookmarkEdit lists the bookmark fields a moderator may change
type BookmarkEdit struct {
	Title       *string        `json:"title" binding:"omitempty,max=300"`
	Description *string        `json:"description"`
	Access      *models.Access `json:"access" binding:"omitempty,access"`
	Tags        *[]string      `json:"tags"`
}

// VideoEdit lists the video fields a moderator may change
type VideoEdit struct {
	Title        *string             `json:"title" binding:"omitempty,min=1,max=300"`
	SourceURL    *string             `json:"source_url" binding:"omitempty,url"`
	ThumbnailURL *string             `json:"thumbnail_url" binding:"omitempty,url"`
	EmbedURL     *string             `json:"embed_url" binding:"omitempty,url"`
	Orientation  *models.Orientation `json:"orientation" binding:"omitempty,orientation"`
	Tags         *[]string           `json:"tags"`
}

func (e BookmarkEdit) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	if e.Title != nil {
		updates["title"] = *e.Title
	}
	if e.Description != nil {
		updates["description"] = *e.Description
	}
	if e.Access != nil {
		updates["access"] = *e.Access
	}
	return updates
}

func (e VideoEdit) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	if e.Title != nil {
		updates["title"] = *e.Title
	}
	if e.SourceURL != nil {
		updates["source_url"] = *e.SourceURL
	}
	if e.ThumbnailURL != nil {
		updates["thumbnail_url"] = *e.ThumbnailURL
	}
	if e.EmbedURL != nil {
		updates["embed_url"] = *e.EmbedURL
	}
	if e.Orientation != nil {
		updates["orientation"] = *e.Orientation
	}
	return updates
}

// changed names the fields in updates, plus tags when they were replaced
func changed(updates map[string]interface{}, tagsChanged bool) string {
	fields := make([]string, 0, len(updates)+1)
	for k := range updates {
		fields = append(fields, k)
	}
	if tagsChanged {
		fields = append(fields, "tags")
	}
	sort.Strings(fields)
	return strings.Join(fields, ", ")
}

// Service implements moderator actions
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates a moderation service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func audit(tx *gorm.DB, entry models.AuditLog) error {
	return tx.Create(&entry).Error
}

func openReport(tx *gorm.DB, reportID uint) (models.Report, error) {
	var report models.Report
	if err := tx.First(&report, reportID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return report, apierr.NotFound("Report")
		}
		return report, err
	}
	if report.IsResolved {
		return report, apierr.Invalid("Report is already resolved.", "report_id")
	}
	return report, nil
}

// Assign makes moderatorID the owner of an open report, replacing any
// earlier assignment
func (s *Service) Assign(ctx context.Context, moderatorID uint, moderatorName string, reportID uint) (*models.ModeratorAssignment, error) {
	var assignment models.ModeratorAssignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := openReport(tx, reportID)
		if err != nil {
			return err
		}

		assignment = models.ModeratorAssignment{
			ReportID:    report.ID,
			ModeratorID: moderatorID,
			AssignedAt:  s.now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "report_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"moderator_id", "assigned_at"}),
		}).Create(&assignment).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", report.ID).First(&assignment).Error; err != nil {
			return err
		}

		return audit(tx, models.AuditLog{
			ModeratorID: moderatorID,
			Action:      models.AuditAssignReport,
			ReportID:    &report.ID,
			BookmarkID:  &report.BookmarkID,
			Details:     fmt.Sprintf("Assigned report %d to %s", report.ID, moderatorName),
		})
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Approve upholds an open report. The bookmark stays private.
func (s *Service) Approve(ctx context.Context, moderatorID, reportID uint) (*models.Report, error) {
	return s.resolve(ctx, moderatorID, reportID, models.ResolutionApproved)
}

// Deny rejects an open report and makes the bookmark public again, unless
// another open or approved report still holds it
func (s *Service) Deny(ctx context.Context, moderatorID, reportID uint) (*models.Report, error) {
	return s.resolve(ctx, moderatorID, reportID, models.ResolutionDenied)
}

func (s *Service) resolve(ctx context.Context, moderatorID, reportID uint, resolution models.Resolution) (*models.Report, error) {
	var report models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = openReport(tx, reportID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := tx.Model(&report).Updates(map[string]interface{}{
			"is_resolved": true,
			"resolution":  resolution,
			"resolved_at": now,
		}).Error; err != nil {
			return err
		}
		report.IsResolved = true
		report.Resolution = resolution
		report.ResolvedAt = &now

		action, verb := models.AuditApproveReport, "Approved"
		if resolution == models.ResolutionDenied {
			action, verb = models.AuditDenyReport, "Denied"

			var holding int64
			if err := tx.Model(&models.Report{}).
				Where("bookmark_id = ? AND id <> ? AND (is_resolved = ? OR resolution = ?)",
					report.BookmarkID, report.ID, false, models.ResolutionApproved).
				Count(&holding).Error; err != nil {
				return err
			}
			if holding == 0 {
				if err := tx.Model(&models.Bookmark{}).
					Where("id = ?", report.BookmarkID).
					UpdateColumn("access", models.AccessPublic).Error; err != nil {
					return err
				}
			}
		}

		return audit(tx, models.AuditLog{
			ModeratorID: moderatorID,
			Action:      action,
			ReportID:    &report.ID,
			BookmarkID:  &report.BookmarkID,
			Details:     fmt.Sprintf("%s report %d", verb, report.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// EditBookmark applies a moderator correction to any bookmark
func (s *Service) EditBookmark(ctx context.Context, moderatorID, bookmarkID uint, edit BookmarkEdit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bookmark models.Bookmark
		if err := tx.First(&bookmark, bookmarkID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apierr.NotFound("Bookmark")
			}
			return err
		}

		updates := edit.updates()
		if len(updates) > 0 {
			if err := tx.Model(&bookmark).Updates(updates).Error; err != nil {
				return err
			}
		}
		if edit.Tags != nil {
			resolved, err := tags.Resolve(tx, *edit.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&bookmark).Association("Tags").Replace(resolved); err != nil {
				return err
			}
		}

		return audit(tx, models.AuditLog{
			ModeratorID: moderatorID,
			Action:      models.AuditEditBookmark,
			BookmarkID:  &bookmark.ID,
			Details:     fmt.Sprintf("Edited bookmark %d: %s", bookmark.ID, changed(updates, edit.Tags != nil)),
		})
	})
}

// EditVideo applies a moderator correction to a video
func (s *Service) EditVideo(ctx context.Context, moderatorID, videoID uint, edit VideoEdit) (*models.Video, error) {
	var video models.Video
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&video, videoID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apierr.NotFound("Video")
			}
			return err
		}

		updates := edit.updates()
		if len(updates) > 0 {
			if err := tx.Model(&video).Updates(updates).Error; err != nil {
				return err
			}
		}
		if edit.Tags != nil {
			resolved, err := tags.Resolve(tx, *edit.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&video).Association("Tags").Replace(resolved); err != nil {
				return err
			}
		}

		if err := audit(tx, models.AuditLog{
			ModeratorID: moderatorID,
			Action:      models.AuditEditVideo,
			VideoID:     &video.ID,
			Details:     fmt.Sprintf("Edited video %d: %s", video.ID, changed(updates, edit.Tags != nil)),
		}); err != nil {
			return err
		}
		return tx.Preload("Tags").First(&video, video.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &video, nil
}
