package event

import (
	"statusflow/common"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var idWorker = common.NewIdWorker()

type Creator struct {
	ID   types.ID
	Name string
}

// CreateEvent stores an unsynced event record within db, which may be a transaction.
func CreateEvent(sourceType string, sourceId types.ID, sourceDesc string, category EventCategory,
	updatedProperties []UpdatedProperty, creator Creator, db *gorm.DB) (*EventRecord, error) {

	record := EventRecord{
		ID: idWorker.NextId(),
		Event: Event{
			SourceType: sourceType,
			SourceId:   sourceId,
			SourceDesc: sourceDesc,

			EventCategory:     category,
			UpdatedProperties: updatedProperties,

			CreatorId:   creator.ID,
			CreatorName: creator.Name,
		},
		Synced:    false,
		Timestamp: types.CurrentTimestamp(),
	}
	if err := EventPersistCreateFunc(&record, db); err != nil {
		return nil, err
	}
	return &record, nil
}
