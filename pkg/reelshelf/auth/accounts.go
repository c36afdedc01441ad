package auth

import (
	"errors"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")
)

// CreateAccount creates a user together with the profile, default collection
// and default channel every account starts with.
func CreateAccount(db *gorm.DB, username, email, password string, role models.SystemRole) (models.User, error) {
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return models.User{}, ErrUsernameTaken
	}
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return models.User{}, ErrEmailTaken
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		SystemRole:   role,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		profile := models.NewProfile(user.ID)
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		collection := models.Collection{
			UserID: user.ID,
			Name:   username,
		}
		if err := tx.Create(&collection).Error; err != nil {
			return err
		}

		channel := models.Channel{
			CollectionID: collection.ID,
			Name:         username + "'s channel",
		}
		return tx.Create(&channel).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// DefaultChannel returns the first channel of the user's first collection
func DefaultChannel(db *gorm.DB, userID uint) (models.Channel, error) {
	var channel models.Channel
	err := db.Joins("JOIN collections ON collections.id = channels.collection_id").
		Where("collections.user_id = ?", userID).
		Order("collections.id ASC, channels.id ASC").
		First(&channel).Error
	return channel, err
}
