package models

import "time"

// Report flags a bookmark for moderator review
type Report struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time  `gorm:"index:idx_reports_resolved_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	BookmarkID uint       `gorm:"not null;index" json:"bookmark_id"`
	UserID     *uint      `gorm:"index" json:"user_id"`
	ReportType ReportType `gorm:"type:varchar(50);not null;index" json:"report_type"`
	Notes      string     `json:"notes"`
	IsResolved bool       `gorm:"index:idx_reports_resolved_created,priority:1" json:"is_resolved"`
	Resolution Resolution `gorm:"type:varchar(20)" json:"resolution"`
	ResolvedAt *time.Time `json:"resolved_at"`

	// Relationships
	Bookmark   Bookmark             `gorm:"foreignKey:BookmarkID" json:"-"`
	User       *User                `gorm:"foreignKey:UserID" json:"-"`
	Assignment *ModeratorAssignment `gorm:"foreignKey:ReportID" json:"assignment,omitempty"`
}

// ModeratorAssignment records which moderator owns a report
type ModeratorAssignment struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ReportID    uint      `gorm:"uniqueIndex;not null" json:"report_id"`
	ModeratorID uint      `gorm:"not null;index" json:"moderator_id"`
	AssignedAt  time.Time `json:"assigned_at"`

	// Relationships
	Moderator User `gorm:"foreignKey:ModeratorID" json:"-"`
}

// AuditLog is an append-only record of moderator actions
type AuditLog struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	ModeratorID uint        `gorm:"not null;index" json:"moderator_id"`
	Action      AuditAction `gorm:"type:varchar(32);not null" json:"action"`
	VideoID     *uint       `json:"video_id"`
	BookmarkID  *uint       `json:"bookmark_id"`
	ReportID    *uint       `json:"report_id"`
	Details     string      `json:"details"`

	// Relationships
	Moderator User `gorm:"foreignKey:ModeratorID" json:"-"`
}
