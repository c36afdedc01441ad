package notifications

import (
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event is something a user may be told about
type Event struct {
	RecipientID uint
	ActorID     uint
	Type        models.NotificationType
	Verb        string
	Target      models.NotificationTarget
}

// Notifier stores notifications, honouring each recipient's preferences
type Notifier struct {
	db *gorm.DB
}

// NewNotifier creates a notifier writing to db
func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

// wants reports whether a profile has opted in to notifications of type t.
// System notifications cannot be turned off.
func wants(p *models.Profile, t models.NotificationType) bool {
	if p == nil {
		return true
	}
	switch t {
	case models.NotificationFollow:
		return p.NotifyOnFollow
	case models.NotificationVideoBookmark, models.NotificationBookmarkSave:
		return p.NotifyOnOwnVideoBookmarked
	case models.NotificationNewContent:
		return p.NotifyOnNewBookmarkFromFollowedUser
	case models.NotificationVideoLike:
		return p.NotifyOnOwnVideoLiked
	}
	return true
}

func (n *Notifier) profile(userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := n.db.Where("user_id = ?", userID).First(&profile).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (e Event) notification() models.Notification {
	notification := models.Notification{
		RecipientID: e.RecipientID,
		Verb:        e.Verb,
		Type:        e.Type,
		Target:      e.Target,
	}
	if e.ActorID != 0 {
		actor := e.ActorID
		notification.ActorID = &actor
	}
	return notification
}

// Notify stores e unless the recipient is the actor or has opted out.
// It reports whether a notification was written.
func (n *Notifier) Notify(e Event) (bool, error) {
	if e.RecipientID == 0 || e.RecipientID == e.ActorID {
		return false, nil
	}

	profile, err := n.profile(e.RecipientID)
	if err != nil {
		return false, err
	}
	if !wants(profile, e.Type) {
		return false, nil
	}

	notification := e.notification()
	if err := n.db.Create(&notification).Error; err != nil {
		return false, err
	}
	return true, nil
}

// NotifyFollowers sends e to every follower of the actor who opted in.
// RecipientID on e is ignored.
func (n *Notifier) NotifyFollowers(e Event) (int, error) {
	var profiles []models.Profile
	err := n.db.Joins("JOIN follows ON follows.follower_id = profiles.user_id").
		Where("follows.followed_id = ?", e.ActorID).
		Find(&profiles).Error
	if err != nil {
		return 0, err
	}

	var batch []models.Notification
	for i := range profiles {
		if profiles[i].UserID == e.ActorID || !wants(&profiles[i], e.Type) {
			continue
		}
		e.RecipientID = profiles[i].UserID
		batch = append(batch, e.notification())
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := n.db.Create(&batch).Error; err != nil {
		return 0, err
	}
	return len(batch), nil
}

// Send is Notify for callers that must not fail because of a notification.
// Errors are logged.
func (n *Notifier) Send(e Event) {
	if _, err := n.Notify(e); err != nil {
		zap.L().Warn("Failed to store notification",
			zap.Uint("recipient_id", e.RecipientID),
			zap.String("type", string(e.Type)),
			zap.Error(err))
	}
}

// SendFollowers is NotifyFollowers with errors logged
func (n *Notifier) SendFollowers(e Event) {
	if _, err := n.NotifyFollowers(e); err != nil {
		zap.L().Warn("Failed to notify followers",
			zap.Uint("actor_id", e.ActorID),
			zap.String("type", string(e.Type)),
			zap.Error(err))
	}
}
