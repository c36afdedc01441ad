package tags

import (
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/gorm"
)

// Change describes what NormalizeAll did, or would do, to one stored tag
type Change struct {
	TagID   uint   `json:"tag_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	MergeID uint   `json:"merge_into,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

var joinTables = []struct {
	table  string
	column string
}{
	{"video_tags", "video_id"},
	{"bookmark_tags", "bookmark_id"},
}

// NormalizeAll rewrites stored tag names that are not normalized. When the
// normalized name already exists the tag is merged into it: its video and
// bookmark links move across and the old row is deleted. Tags that normalize
// to nothing are reported as skipped. With dryRun nothing is written.
func NormalizeAll(db *gorm.DB, dryRun bool) ([]Change, error) {
	var all []models.Tag
	if err := db.Order("id ASC").Find(&all).Error; err != nil {
		return nil, err
	}

	byName := make(map[string]uint, len(all))
	for _, t := range all {
		byName[t.Name] = t.ID
	}

	var changes []Change
	for _, t := range all {
		normalized := models.NormalizeTagName(t.Name)
		if normalized == t.Name {
			continue
		}

		change := Change{TagID: t.ID, From: t.Name, To: normalized}
		if normalized == "" {
			change.Skipped = true
		} else if existing, ok := byName[normalized]; ok && existing != t.ID {
			change.MergeID = existing
		} else {
			// Later duplicates of the same normalized name merge into this one.
			byName[normalized] = t.ID
		}
		changes = append(changes, change)
	}

	if dryRun || len(changes) == 0 {
		return changes, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, ch := range changes {
			switch {
			case ch.Skipped:
				continue
			case ch.MergeID != 0:
				if err := merge(tx, ch.TagID, ch.MergeID); err != nil {
					return err
				}
			default:
				if err := tx.Model(&models.Tag{}).Where("id = ?", ch.TagID).
					UpdateColumn("name", ch.To).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func merge(tx *gorm.DB, fromID, intoID uint) error {
	for _, jt := range joinTables {
		copySQL := "INSERT INTO " + jt.table + " (" + jt.column + ", tag_id) " +
			"SELECT " + jt.column + ", ? FROM " + jt.table + " WHERE tag_id = ? AND " +
			jt.column + " NOT IN (SELECT " + jt.column + " FROM " + jt.table + " WHERE tag_id = ?)"
		if err := tx.Exec(copySQL, intoID, fromID, intoID).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+jt.table+" WHERE tag_id = ?", fromID).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.Tag{}, fromID).Error
}
