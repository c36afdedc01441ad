package feed

import (
	"context"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/database"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
)

// Builder turns Params into feed queries
type Builder struct {
	db     *gorm.DB
	policy Policy
}

// NewBuilder creates a feed builder over db
func NewBuilder(db *gorm.DB, policy Policy) *Builder {
	return &Builder{db: db, policy: policy}
}

// Policy returns the visibility policy the builder applies
func (b *Builder) Policy() Policy {
	return b.policy
}

// Page is one page of the deduplicated feed
type Page struct {
	Bookmarks []models.Bookmark
	// Total is the number of distinct videos across all pages
	Total int64
}

// candidates selects every bookmark v may see that matches the filters and
// search in p, joined to its video. Rows are not yet grouped by video.
func (b *Builder) candidates(ctx context.Context, p Params, v Viewer) *gorm.DB {
	q := b.db.WithContext(ctx).Table("bookmarks").
		Joins("JOIN videos ON videos.id = bookmarks.video_id")
	q = b.policy.Restrict(q, v)

	if p.Orientation != "" {
		q = q.Where("videos.orientation = ?", p.Orientation)
	}

	if p.User != "" {
		q = q.Where("bookmarks.user_id IN (?)",
			b.db.Table("users").Select("users.id").Where("users.username = ?", p.User))
	}

	if p.LikedBy != "" {
		q = q.Where("bookmarks.video_id IN (?)",
			b.db.Table("video_likes").Select("video_likes.video_id").
				Joins("JOIN users ON users.id = video_likes.user_id").
				Where("users.username = ?", p.LikedBy))
	}

	// following without a viewer is ignored rather than rejected
	if p.Following && v.Authenticated() {
		q = q.Where("bookmarks.user_id IN (?)",
			b.db.Table("follows").Select("follows.followed_id").Where("follows.follower_id = ?", v.UserID))
	}

	if p.Tag != "" {
		q = q.Where("EXISTS (?)",
			b.db.Table("video_tags").Select("1").
				Joins("JOIN tags ON tags.id = video_tags.tag_id").
				Where("video_tags.video_id = bookmarks.video_id AND tags.name = ?", p.Tag))
	}

	if p.Query != "" {
		pattern := database.ContainsPattern(p.Query)
		videoTag := b.db.Table("video_tags").Select("1").
			Joins("JOIN tags ON tags.id = video_tags.tag_id").
			Where(`video_tags.video_id = bookmarks.video_id AND LOWER(tags.name) LIKE ? ESCAPE '\'`, pattern)
		q = q.Where(`(LOWER(bookmarks.title) LIKE ? ESCAPE '\' OR LOWER(bookmarks.description) LIKE ? ESCAPE '\' OR LOWER(videos.title) LIKE ? ESCAPE '\' OR EXISTS (?))`,
			pattern, pattern, pattern, videoTag)
	}

	return q
}

// representatives groups candidates by video: the smallest bookmark id
// stands for the group and bookmark_count is the group size.
func (b *Builder) representatives(ctx context.Context, p Params, v Viewer) *gorm.DB {
	return b.candidates(ctx, p, v).
		Select("MIN(bookmarks.id) AS bookmark_id, COUNT(bookmarks.id) AS bookmark_count").
		Group("bookmarks.video_id")
}

func order(q *gorm.DB, s Sort) *gorm.DB {
	switch s {
	case SortPopular:
		return q.Order("reps.bookmark_count DESC").
			Order("videos.likes_count DESC").
			Order("bookmarks.created_at DESC").
			Order("bookmarks.id DESC")
	case SortRandom:
		return q.Order("RANDOM()")
	}
	return q.Order("bookmarks.created_at DESC").Order("bookmarks.id DESC")
}

func preload(q *gorm.DB) *gorm.DB {
	return q.Preload("User.Profile").
		Preload("Channel.Collection").
		Preload("Video").
		Preload("Tags")
}

// Page returns one page of representative bookmarks for p as seen by v
func (b *Builder) Page(ctx context.Context, p Params, v Viewer) (*Page, error) {
	var total int64
	if err := b.db.WithContext(ctx).Table("(?) AS reps", b.representatives(ctx, p, v)).
		Count(&total).Error; err != nil {
		return nil, err
	}

	page := &Page{Bookmarks: []models.Bookmark{}, Total: total}
	if int64(p.Offset()) >= total {
		return page, nil
	}

	q := b.db.WithContext(ctx).Model(&models.Bookmark{}).
		Select("bookmarks.*").
		Joins("JOIN (?) AS reps ON reps.bookmark_id = bookmarks.id", b.representatives(ctx, p, v)).
		Joins("JOIN videos ON videos.id = bookmarks.video_id")
	q = preload(order(q, p.Sort))

	if err := q.Offset(p.Offset()).Limit(p.PageSize).Find(&page.Bookmarks).Error; err != nil {
		return nil, err
	}
	return page, nil
}

// Representative returns the bookmark that stands for videoID in an
// unfiltered feed seen by v
func (b *Builder) Representative(ctx context.Context, videoID uint, v Viewer) (*models.Bookmark, error) {
	var ids []uint
	err := b.candidates(ctx, Params{}, v).
		Where("bookmarks.video_id = ?", videoID).
		Order("bookmarks.id ASC").
		Limit(1).
		Pluck("bookmarks.id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apierr.NotFound("Bookmark")
	}

	var bookmark models.Bookmark
	if err := preload(b.db.WithContext(ctx)).First(&bookmark, ids[0]).Error; err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// Get loads one bookmark if v may see it
func (b *Builder) Get(ctx context.Context, id uint, v Viewer) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	if err := preload(b.db.WithContext(ctx)).First(&bookmark, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierr.NotFound("Bookmark")
		}
		return nil, err
	}
	if !b.policy.Visible(v, bookmark.Access, bookmark.UserID) {
		return nil, apierr.NotFound("Bookmark")
	}
	return &bookmark, nil
}
