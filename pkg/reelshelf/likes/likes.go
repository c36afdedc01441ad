// Package likes toggles video likes and keeps each video's cached like
// count in step with its like edges
package likes

import (
	"context"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Status is a user's like state for one video
type Status struct {
	IsLiked    bool `json:"is_liked"`
	LikesCount uint `json:"likes_count"`
}

// Toggle likes videoID for userID, or removes the like if there is one.
// The edge and the counter change in one transaction, and the counter only
// moves when an edge was actually inserted or deleted, so concurrent toggles
// cannot double count.
func Toggle(ctx context.Context, db *gorm.DB, userID, videoID uint) (Status, error) {
	var status Status
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var video models.Video
		if err := tx.Select("id").First(&video, videoID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apierr.NotFound("Video")
			}
			return err
		}

		removed := tx.Where("user_id = ? AND video_id = ?", userID, videoID).Delete(&models.VideoLike{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected > 0 {
			if err := tx.Model(&models.Video{}).
				Where("id = ? AND likes_count > 0", videoID).
				UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error; err != nil {
				return err
			}
		} else {
			like := models.VideoLike{UserID: userID, VideoID: videoID}
			added := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
			if added.Error != nil {
				return added.Error
			}
			if added.RowsAffected > 0 {
				if err := tx.Model(&models.Video{}).
					Where("id = ?", videoID).
					UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error; err != nil {
					return err
				}
			}
			status.IsLiked = true
		}

		return tx.Model(&models.Video{}).Select("likes_count").
			Where("id = ?", videoID).
			Scan(&status.LikesCount).Error
	})
	return status, err
}

// Get returns userID's like state for videoID
func Get(ctx context.Context, db *gorm.DB, userID, videoID uint) (Status, error) {
	var video models.Video
	if err := db.WithContext(ctx).Select("id", "likes_count").First(&video, videoID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return Status{}, apierr.NotFound("Video")
		}
		return Status{}, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.VideoLike{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Count(&count).Error; err != nil {
		return Status{}, err
	}
	return Status{IsLiked: count > 0, LikesCount: video.LikesCount}, nil
}

// Drift is a video whose cached like count disagrees with its like edges
type Drift struct {
	VideoID uint
	Title   string
	Cached  uint
	Actual  int64
}

// CheckDrift lists every video whose likes_count differs from the number of
// like edges. It only reports; counts are never rewritten here.
func CheckDrift(ctx context.Context, db *gorm.DB) ([]Drift, error) {
	edges := db.Model(&models.VideoLike{}).
		Select("video_id, COUNT(*) AS edges").
		Group("video_id")

	var drift []Drift
	err := db.WithContext(ctx).Table("videos").
		Select("videos.id AS video_id, videos.title, videos.likes_count AS cached, COALESCE(e.edges, 0) AS actual").
		Joins("LEFT JOIN (?) AS e ON e.video_id = videos.id", edges).
		Where("videos.likes_count <> COALESCE(e.edges, 0)").
		Order("videos.id ASC").
		Scan(&drift).Error
	return drift, err
}
