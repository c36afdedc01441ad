package models

import "time"

// SystemRole represents a user's system-wide role
type SystemRole string

const (
	SystemRoleAdmin     SystemRole = "admin"
	SystemRoleModerator SystemRole = "moderator"
	SystemRoleUser      SystemRole = "user"
)

// CanModerate reports whether the role grants access to the moderation queue
func (r SystemRole) CanModerate() bool {
	return r == SystemRoleModerator || r == SystemRoleAdmin
}

// User represents an account on the platform
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Username     string     `gorm:"uniqueIndex;not null;size:150" json:"username"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `json:"-"`
	SystemRole   SystemRole `gorm:"type:varchar(20);default:'user'" json:"system_role"`

	// Relationships
	Profile     *Profile     `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Collections []Collection `gorm:"foreignKey:UserID" json:"collections,omitempty"`
}
