// Package bookmarks creates, copies and edits bookmarks
package bookmarks

import (
	"context"
	"errors"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/feed"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/notifications"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/tags"
	"gorm.io/gorm"
)

// ErrDuplicate is wrapped by the error returned when the same video is
// bookmarked twice into one channel
var ErrDuplicate = errors.New("video already bookmarked in this channel")

// VideoInput describes a video for manual bookmark creation. An existing
// video with the same source URL is reused.
type VideoInput struct {
	SourceURL    string             `json:"source_url" binding:"required,url"`
	Title        string             `json:"title" binding:"required,max=300"`
	ThumbnailURL string             `json:"thumbnail_url" binding:"omitempty,url"`
	EmbedURL     string             `json:"embed_url" binding:"omitempty,url"`
	Orientation  models.Orientation `json:"orientation" binding:"required,orientation"`
	Tags         []string           `json:"tags"`
}

// BookmarkInput holds the caller-controlled bookmark fields. A zero
// ChannelID files the bookmark in the caller's default channel.
type BookmarkInput struct {
	ChannelID   uint          `json:"channel_id"`
	Title       string        `json:"title" binding:"max=300"`
	Description string        `json:"description"`
	Access      models.Access `json:"access" binding:"omitempty,access"`
	Tags        []string      `json:"tags"`
}

// UpdateInput lists the bookmark fields an owner may change. Nil fields are
// left alone.
type UpdateInput struct {
	Title       *string        `json:"title" binding:"omitempty,max=300"`
	Description *string        `json:"description"`
	Access      *models.Access `json:"access" binding:"omitempty,access"`
	ChannelID   *uint          `json:"channel_id"`
	Tags        *[]string      `json:"tags"`
}

// Service implements bookmark writes
type Service struct {
	db       *gorm.DB
	notifier *notifications.Notifier
}

// NewService creates a bookmark service
func NewService(db *gorm.DB, notifier *notifications.Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

func duplicateError() error {
	return &apierr.ValidationError{
		Message: "You have already bookmarked this video in this channel.",
		Fields:  map[string]string{"video_id": ErrDuplicate.Error()},
	}
}

// IsDuplicate reports whether err means the bookmark already existed
func IsDuplicate(err error) bool {
	var ve *apierr.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return ve.Fields["video_id"] == ErrDuplicate.Error()
}

// ownedChannel loads channelID if it belongs to userID. A zero id selects
// the first channel of the profile's default collection, then the user's
// first channel overall.
func ownedChannel(tx *gorm.DB, userID, channelID uint) (models.Channel, error) {
	var channel models.Channel
	if channelID != 0 {
		err := tx.Joins("JOIN collections ON collections.id = channels.collection_id").
			Where("channels.id = ? AND collections.user_id = ?", channelID, userID).
			First(&channel).Error
		if err == gorm.ErrRecordNotFound {
			return channel, apierr.NotFound("Channel")
		}
		return channel, err
	}

	var profile models.Profile
	if err := tx.Where("user_id = ?", userID).First(&profile).Error; err == nil && profile.DefaultBookmarkCollectionID != nil {
		err := tx.Joins("JOIN collections ON collections.id = channels.collection_id").
			Where("collections.id = ? AND collections.user_id = ?", *profile.DefaultBookmarkCollectionID, userID).
			Order("channels.id ASC").
			First(&channel).Error
		if err == nil {
			return channel, nil
		}
	}

	channel, err := auth.DefaultChannel(tx, userID)
	if err == gorm.ErrRecordNotFound {
		return channel, apierr.NotFound("Channel")
	}
	return channel, err
}

func exists(tx *gorm.DB, userID, channelID, videoID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Bookmark{}).
		Where("user_id = ? AND channel_id = ? AND video_id = ?", userID, channelID, videoID).
		Count(&count).Error
	return count > 0, err
}

// insert files video into the caller's channel inside tx
func insert(tx *gorm.DB, userID uint, video models.Video, in BookmarkInput) (models.Bookmark, error) {
	channel, err := ownedChannel(tx, userID, in.ChannelID)
	if err != nil {
		return models.Bookmark{}, err
	}

	dup, err := exists(tx, userID, channel.ID, video.ID)
	if err != nil {
		return models.Bookmark{}, err
	}
	if dup {
		return models.Bookmark{}, duplicateError()
	}

	access := in.Access
	if access == "" {
		access = models.AccessPublic
	}

	bookmark := models.Bookmark{
		UserID:      userID,
		ChannelID:   channel.ID,
		VideoID:     video.ID,
		Title:       in.Title,
		Description: in.Description,
		Access:      access,
	}
	if err := tx.Create(&bookmark).Error; err != nil {
		return models.Bookmark{}, err
	}

	if len(in.Tags) > 0 {
		resolved, err := tags.Resolve(tx, in.Tags)
		if err != nil {
			return models.Bookmark{}, err
		}
		if err := tx.Model(&bookmark).Association("Tags").Replace(resolved); err != nil {
			return models.Bookmark{}, err
		}
	}
	return bookmark, nil
}

// announce tells the video's creator and, for publicly listed bookmarks,
// the owner's followers
func (s *Service) announce(bookmark models.Bookmark, video models.Video) {
	if s.notifier == nil {
		return
	}
	if video.CreatedByID != nil {
		s.notifier.Send(notifications.Event{
			RecipientID: *video.CreatedByID,
			ActorID:     bookmark.UserID,
			Type:        models.NotificationVideoBookmark,
			Verb:        "bookmarked your video",
			Target:      models.NotificationTarget{Kind: models.TargetVideo, ObjectID: video.ID},
		})
	}
	if bookmark.Access == models.AccessPublic {
		s.notifier.SendFollowers(notifications.Event{
			ActorID: bookmark.UserID,
			Type:    models.NotificationNewContent,
			Verb:    "bookmarked a new video",
			Target:  models.NotificationTarget{Kind: models.TargetBookmark, ObjectID: bookmark.ID},
		})
	}
}

// Create bookmarks an existing video
func (s *Service) Create(ctx context.Context, userID, videoID uint, in BookmarkInput) (*models.Bookmark, error) {
	var video models.Video
	if err := s.db.WithContext(ctx).First(&video, videoID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierr.NotFound("Video")
		}
		return nil, err
	}

	var bookmark models.Bookmark
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		bookmark, err = insert(tx, userID, video, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.announce(bookmark, video)
	return &bookmark, nil
}

// ManualCreate bookmarks a video described by v, creating the video when no
// video with its source URL exists yet. Video tags are replaced by v.Tags
// when any are given.
func (s *Service) ManualCreate(ctx context.Context, userID uint, v VideoInput, in BookmarkInput) (*models.Bookmark, error) {
	var (
		video    models.Video
		bookmark models.Bookmark
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		creator := userID
		err := tx.Where(models.Video{SourceURL: v.SourceURL}).
			Attrs(models.Video{
				Title:        v.Title,
				ThumbnailURL: v.ThumbnailURL,
				EmbedURL:     v.EmbedURL,
				Orientation:  v.Orientation,
				CreatedByID:  &creator,
			}).
			FirstOrCreate(&video).Error
		if err != nil {
			return err
		}

		if len(v.Tags) > 0 {
			resolved, err := tags.Resolve(tx, v.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&video).Association("Tags").Replace(resolved); err != nil {
				return err
			}
		}

		bookmark, err = insert(tx, userID, video, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.announce(bookmark, video)
	return &bookmark, nil
}

// Collect copies a bookmark the caller can see into one of the caller's
// channels, keeping its title, description, access and tags
func (s *Service) Collect(ctx context.Context, builder *feed.Builder, viewer feed.Viewer, sourceID, channelID uint) (*models.Bookmark, error) {
	source, err := builder.Get(ctx, sourceID, viewer)
	if err != nil {
		return nil, err
	}

	var bookmark models.Bookmark
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		bookmark, err = insert(tx, viewer.UserID, source.Video, BookmarkInput{
			ChannelID:   channelID,
			Title:       source.Title,
			Description: source.Description,
			Access:      source.Access,
			Tags:        tags.Names(source.Tags),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Send(notifications.Event{
			RecipientID: source.UserID,
			ActorID:     viewer.UserID,
			Type:        models.NotificationBookmarkSave,
			Verb:        "saved your bookmark",
			Target:      models.NotificationTarget{Kind: models.TargetBookmark, ObjectID: source.ID},
		})
	}
	return &bookmark, nil
}

// underReview reports whether a moderator has yet to clear a bookmark:
// it has an open report, or an approved one that keeps it private
func underReview(tx *gorm.DB, bookmarkID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Report{}).
		Where("bookmark_id = ? AND (is_resolved = ? OR resolution = ?)", bookmarkID, false, models.ResolutionApproved).
		Count(&count).Error
	return count > 0, err
}

// Update applies in to a bookmark owned by userID. Access cannot be changed
// while the bookmark is under moderation.
func (s *Service) Update(ctx context.Context, userID, bookmarkID uint, in UpdateInput) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", bookmarkID, userID).First(&bookmark).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apierr.NotFound("Bookmark")
			}
			return err
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = *in.Title
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Access != nil && *in.Access != bookmark.Access {
			held, err := underReview(tx, bookmark.ID)
			if err != nil {
				return err
			}
			if held {
				return apierr.Invalid("Access cannot be changed while the bookmark is under review.", "access")
			}
			updates["access"] = *in.Access
		}
		if in.ChannelID != nil && *in.ChannelID != bookmark.ChannelID {
			channel, err := ownedChannel(tx, userID, *in.ChannelID)
			if err != nil {
				return err
			}
			dup, err := exists(tx, userID, channel.ID, bookmark.VideoID)
			if err != nil {
				return err
			}
			if dup {
				return duplicateError()
			}
			updates["channel_id"] = channel.ID
		}

		if len(updates) > 0 {
			if err := tx.Model(&bookmark).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.Tags != nil {
			resolved, err := tags.Resolve(tx, *in.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&bookmark).Association("Tags").Replace(resolved); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}
