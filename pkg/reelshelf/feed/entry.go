package feed

import (
	"time"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
)

// Entry is one feed item as returned to clients
type Entry struct {
	ID             uint               `json:"id"`
	VideoID        uint               `json:"video_id"`
	Title          string             `json:"title"`
	ThumbnailURL   string             `json:"thumbnail_url"`
	Username       string             `json:"user_username"`
	UserAvatarURL  string             `json:"user_avatar_url"`
	CreatedAt      string             `json:"created_at"`
	ChannelName    string             `json:"channel_name"`
	CollectionName string             `json:"collection_name"`
	Description    string             `json:"description"`
	Orientation    models.Orientation `json:"orientation"`
	LikesCount     uint               `json:"likes_count"`
	Tags           []string           `json:"tags"`
}

// Response is the paginated feed body
type Response struct {
	Count    int64   `json:"count"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	HasNext  bool    `json:"has_next"`
	Results  []Entry `json:"results"`
}

// NewEntry renders a bookmark loaded with its user profile, channel,
// collection, video and tags. An untitled bookmark shows its video's title.
func NewEntry(b models.Bookmark, defaultAvatarURL string) Entry {
	title := b.Title
	if title == "" {
		title = b.Video.Title
	}

	tags := make([]string, len(b.Tags))
	for i, t := range b.Tags {
		tags[i] = t.Name
	}

	return Entry{
		ID:             b.ID,
		VideoID:        b.VideoID,
		Title:          title,
		ThumbnailURL:   b.Video.ThumbnailURL,
		Username:       b.User.Username,
		UserAvatarURL:  b.User.Profile.AvatarURL(defaultAvatarURL),
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
		ChannelName:    b.Channel.Name,
		CollectionName: b.Channel.Collection.Name,
		Description:    b.Description,
		Orientation:    b.Video.Orientation,
		LikesCount:     b.Video.LikesCount,
		Tags:           tags,
	}
}

// NewResponse renders a page for p
func NewResponse(page *Page, p Params, defaultAvatarURL string) Response {
	entries := make([]Entry, len(page.Bookmarks))
	for i, b := range page.Bookmarks {
		entries[i] = NewEntry(b, defaultAvatarURL)
	}
	return Response{
		Count:    page.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasNext:  int64(p.Offset()+len(entries)) < page.Total,
		Results:  entries,
	}
}
