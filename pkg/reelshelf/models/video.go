package models

import "time"

// Video is the underlying media item that bookmarks point at
type Video struct {
	ID           uint        `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time   `gorm:"index;index:idx_videos_orientation_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	SourceURL    string      `gorm:"size:2083;index" json:"source_url"`
	Title        string      `gorm:"not null;size:300" json:"title"`
	ThumbnailURL string      `gorm:"size:500" json:"thumbnail_url"`
	EmbedURL     string      `gorm:"size:500" json:"embed_url"`
	Orientation  Orientation `gorm:"type:varchar(10);index:idx_videos_orientation_created,priority:1" json:"orientation"`
	CreatedByID  *uint       `json:"created_by_id"`

	// LikesCount caches the number of VideoLike rows for this video.
	// Only ever changed with an atomic increment or decrement.
	LikesCount uint `gorm:"not null;default:0;index" json:"likes_count"`

	// Relationships
	CreatedBy *User `gorm:"foreignKey:CreatedByID" json:"-"`
	Tags      []Tag `gorm:"many2many:video_tags;" json:"tags,omitempty"`
}

// VideoLike is a (user, video) like edge
type VideoLike struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_video_likes_video_created,priority:2" json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_video_likes_user_video,priority:1" json:"user_id"`
	VideoID   uint      `gorm:"not null;uniqueIndex:idx_video_likes_user_video,priority:2;index:idx_video_likes_video_created,priority:1" json:"video_id"`

	// Relationships
	User  User  `gorm:"foreignKey:UserID" json:"-"`
	Video Video `gorm:"foreignKey:VideoID" json:"-"`
}
