package feed

import (
	"strconv"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
)

// Viewer is who a feed is being built for. The zero value is anonymous.
type Viewer struct {
	UserID    uint
	Moderator bool
}

// Authenticated reports whether the viewer is logged in
func (v Viewer) Authenticated() bool {
	return v.UserID != 0
}

func (v Viewer) scope() string {
	switch {
	case v.Moderator:
		return "mod" + strconv.FormatUint(uint64(v.UserID), 10)
	case v.Authenticated():
		return "user" + strconv.FormatUint(uint64(v.UserID), 10)
	}
	return "anon"
}

// Policy decides which bookmarks a viewer may see.
//
// Moderators see everything. Everyone else sees public bookmarks, adult
// bookmarks when IncludeAdult is set, and their own bookmarks whatever
// their state. A private bookmark is therefore never shown to anyone but
// its owner and moderators.
type Policy struct {
	IncludeAdult bool
}

func (p Policy) listed() []models.Access {
	if p.IncludeAdult {
		return []models.Access{models.AccessPublic, models.AccessAdult}
	}
	return []models.Access{models.AccessPublic}
}

// Visible reports whether v may see a bookmark in state access owned by ownerID
func (p Policy) Visible(v Viewer, access models.Access, ownerID uint) bool {
	if v.Moderator {
		return true
	}
	if v.Authenticated() && ownerID == v.UserID {
		return true
	}
	for _, a := range p.listed() {
		if a == access {
			return true
		}
	}
	return false
}

// Restrict applies Visible as a SQL predicate on the bookmarks table
func (p Policy) Restrict(q *gorm.DB, v Viewer) *gorm.DB {
	if v.Moderator {
		return q
	}
	if v.Authenticated() {
		return q.Where("(bookmarks.access IN ? OR bookmarks.user_id = ?)", p.listed(), v.UserID)
	}
	return q.Where("bookmarks.access IN ?", p.listed())
}
