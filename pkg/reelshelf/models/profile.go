package models

import "time"

// Profile holds per-user display data and preferences.
// Every user has exactly one, created at registration.
type Profile struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar"`

	DefaultBookmarkOrientation  Orientation `gorm:"type:varchar(15)" json:"default_bookmark_orientation"`
	DefaultBookmarkCollectionID *uint       `json:"default_bookmark_collection_id"`

	NotifyOnFollow                      bool `json:"notify_on_follow"`
	NotifyOnOwnVideoBookmarked          bool `json:"notify_on_own_video_bookmarked"`
	NotifyOnNewBookmarkFromFollowedUser bool `json:"notify_on_new_bookmark_from_followed_user"`
	NotifyOnOwnVideoLiked               bool `json:"notify_on_own_video_liked"`
}

// NewProfile returns the profile a freshly registered user starts with.
// Notification preferences are opt-out.
func NewProfile(userID uint) Profile {
	return Profile{
		UserID:                              userID,
		NotifyOnFollow:                      true,
		NotifyOnOwnVideoBookmarked:          true,
		NotifyOnNewBookmarkFromFollowedUser: true,
		NotifyOnOwnVideoLiked:               true,
	}
}

// AvatarURL returns the uploaded avatar, or defaultURL when none is set.
// Safe to call on a nil profile.
func (p *Profile) AvatarURL(defaultURL string) string {
	if p == nil || p.Avatar == "" {
		return defaultURL
	}
	return p.Avatar
}
