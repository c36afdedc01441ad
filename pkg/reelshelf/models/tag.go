package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var ErrEmptyTagName = errors.New("tag name cannot be empty after normalization")

// Tag is shared between videos and bookmarks. Name is stored normalized.
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"uniqueIndex;not null;size:50" json:"name"`
}

// NormalizeTagName lowercases the name and removes spaces
func NormalizeTagName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(name), " ", ""))
}

// BeforeSave normalizes the name so that "Big Cats" and "bigcats" are the same tag
func (t *Tag) BeforeSave(tx *gorm.DB) error {
	t.Name = NormalizeTagName(t.Name)
	if t.Name == "" {
		return ErrEmptyTagName
	}
	return nil
}
