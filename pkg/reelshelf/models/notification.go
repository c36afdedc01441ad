package models

import "time"

// NotificationTarget is a typed reference to what a notification is about
type NotificationTarget struct {
	Kind     TargetKind `gorm:"type:varchar(20)" json:"kind"`
	ObjectID uint       `json:"id"`
}

// Notification is delivered to a single recipient
type Notification struct {
	ID          uint               `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
	RecipientID uint               `gorm:"not null;index:idx_notifications_recipient_read,priority:1" json:"recipient_id"`
	ActorID     *uint              `json:"actor_id"`
	Verb        string             `gorm:"size:255" json:"verb"`
	Type        NotificationType   `gorm:"type:varchar(20);not null" json:"notification_type"`
	Target      NotificationTarget `gorm:"embedded;embeddedPrefix:target_" json:"target"`
	IsRead      bool               `gorm:"index:idx_notifications_recipient_read,priority:2" json:"is_read"`

	// Relationships
	Actor *User `gorm:"foreignKey:ActorID" json:"-"`
}
