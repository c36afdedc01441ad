package models

import "time"

// Bookmark is a user's filing of a video into one of their channels
type Bookmark struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `gorm:"index:idx_bookmarks_video_access_created,priority:3;index:idx_bookmarks_user_created,priority:2;index:idx_bookmarks_access_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_channel_video,priority:1;index:idx_bookmarks_user_created,priority:1" json:"user_id"`
	ChannelID   uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_channel_video,priority:2" json:"channel_id"`
	VideoID     uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_channel_video,priority:3;index:idx_bookmarks_video_access_created,priority:1" json:"video_id"`
	Title       string    `gorm:"size:300" json:"title"`
	Description string    `json:"description"`
	Access      Access    `gorm:"type:varchar(10);not null;default:'public';index:idx_bookmarks_video_access_created,priority:2;index:idx_bookmarks_access_created,priority:1" json:"access"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Channel Channel `gorm:"foreignKey:ChannelID" json:"-"`
	Video   Video   `gorm:"foreignKey:VideoID" json:"-"`
	Tags    []Tag   `gorm:"many2many:bookmark_tags;" json:"tags,omitempty"`
}

// Follow is a directed follower -> followed edge
type Follow struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follows_pair,priority:1" json:"follower_id"`
	FollowedID uint      `gorm:"not null;uniqueIndex:idx_follows_pair,priority:2;index" json:"followed_id"`

	// Relationships
	Follower User `gorm:"foreignKey:FollowerID" json:"-"`
	Followed User `gorm:"foreignKey:FollowedID" json:"-"`
}
