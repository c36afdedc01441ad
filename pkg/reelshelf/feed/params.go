// Package feed builds the public bookmark feed: visibility filtering,
// search, one representative bookmark per video, sorting and paging.
package feed

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/apierr"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
)

// Sort selects the feed ordering
type Sort string

const (
	SortAll     Sort = "all"
	SortPopular Sort = "popular"
	SortRandom  Sort = "random"
)

// Params is a parsed feed request. Zero-valued filters are disabled.
type Params struct {
	Orientation models.Orientation
	User        string
	LikedBy     string
	Following   bool
	Tag         string
	Query       string
	Sort        Sort
	Page        int
	PageSize    int
}

// ParseParams reads feed parameters from a query string. Unknown
// orientation and sort values fall back to no filter and the latest-first
// sort. Only malformed paging is an error; an oversized page_size is clamped
// to maxPageSize.
func ParseParams(values url.Values, defaultPageSize, maxPageSize int) (Params, error) {
	p := Params{
		User:     strings.TrimSpace(values.Get("user")),
		LikedBy:  strings.TrimSpace(values.Get("liked_by")),
		Tag:      models.NormalizeTagName(values.Get("tag")),
		Query:    strings.TrimSpace(values.Get("q")),
		Sort:     SortAll,
		Page:     1,
		PageSize: defaultPageSize,
	}

	if o := models.Orientation(strings.ToLower(values.Get("orientation"))); o.Valid() {
		p.Orientation = o
	}

	if following, err := strconv.ParseBool(values.Get("following")); err == nil {
		p.Following = following
	}

	switch s := Sort(strings.ToLower(values.Get("sort"))); s {
	case SortPopular, SortRandom:
		p.Sort = s
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, apierr.Invalid("Invalid page.", "page")
		}
		p.Page = page
	}

	if raw := values.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return Params{}, apierr.Invalid("Invalid page size.", "page_size")
		}
		p.PageSize = size
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}

	return p, nil
}

// Cacheable reports whether a page for p may be served from cache
func (p Params) Cacheable() bool {
	return p.Sort != SortRandom
}

// Offset is the number of deduplicated entries before the requested page
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// CacheKey identifies the page p describes for viewer v. Equivalent
// requests map to the same key whatever their parameter order or spelling.
func (p Params) CacheKey(v Viewer) string {
	values := url.Values{}
	values.Set("orientation", string(p.Orientation))
	values.Set("user", p.User)
	values.Set("liked_by", p.LikedBy)
	values.Set("following", strconv.FormatBool(p.Following && v.Authenticated()))
	values.Set("tag", p.Tag)
	values.Set("q", p.Query)
	values.Set("sort", string(p.Sort))
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("page_size", strconv.Itoa(p.PageSize))
	return "feed:" + v.scope() + "?" + values.Encode()
}
