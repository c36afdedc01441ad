package tags

import (
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resolve normalizes names and returns the matching tags, creating the
// missing ones. Names that normalize to nothing are dropped and duplicates
// collapse, so the result is in first-seen order.
func Resolve(tx *gorm.DB, names []string) ([]models.Tag, error) {
	seen := make(map[string]bool, len(names))
	result := make([]models.Tag, 0, len(names))

	for _, name := range names {
		normalized := models.NormalizeTagName(name)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true

		tag := models.Tag{Name: normalized}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
			return nil, err
		}
		if tag.ID == 0 {
			if err := tx.Where("name = ?", normalized).First(&tag).Error; err != nil {
				return nil, err
			}
		}
		result = append(result, tag)
	}
	return result, nil
}

// Names returns the tag names in order
func Names(tags []models.Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}
