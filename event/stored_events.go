package event

import (
	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	EventPersistCreateFunc = eventPersistCreate
	MarkSyncedFunc         = markSynced
	FindUnsyncedFunc       = FindUnsynced
)

func eventPersistCreate(record *EventRecord, db *gorm.DB) error {
	return db.Create(record).Error
}

// markSynced flags the row only; the caller's copy is updated as well so handlers can chain.
func markSynced(record *EventRecord, db *gorm.DB) error {
	if err := db.Model(&EventRecord{}).Where("id = ?", record.ID).Update("synced", true).Error; err != nil {
		return err
	}
	record.Synced = true
	return nil
}

// FindUnsynced pages through unsynced events of category by ascending id, starting after afterID.
func FindUnsynced(category EventCategory, afterID types.ID, limit int, db *gorm.DB) ([]EventRecord, error) {
	records := []EventRecord{}
	if err := db.Where("synced = ? AND event_category = ? AND id > ?", false, category, afterID).
		Order("id ASC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
