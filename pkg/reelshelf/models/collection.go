package models

import "time"

// Collection is the top level of a user's filing hierarchy
type Collection struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Name        string    `gorm:"not null;size:100" json:"name"`
	Description string    `json:"description"`

	// Relationships
	User     User      `gorm:"foreignKey:UserID" json:"-"`
	Channels []Channel `gorm:"foreignKey:CollectionID" json:"channels,omitempty"`
}

// Channel belongs to exactly one collection and holds bookmarks
type Channel struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CollectionID uint      `gorm:"not null;index" json:"collection_id"`
	Name         string    `gorm:"not null;size:100" json:"name"`
	Description  string    `json:"description"`

	// Relationships
	Collection Collection `gorm:"foreignKey:CollectionID" json:"collection,omitempty"`
}
