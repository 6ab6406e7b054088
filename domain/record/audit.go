package record

import (
	"context"
	"statusflow/common"
	"statusflow/domain/transition"
	"statusflow/event"
	"statusflow/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	idWorker = common.NewIdWorker()

	AuditFunc = Audit
)

// Audit records a committed transition of an application: the performed status change row, a
// STATE_TRANSITIONED event and the event handlers. It runs outside the transition's own write.
func Audit(ctx context.Context, entry transition.AuditEntry[string, *Application]) error {
	a := entry.Record
	change := PerformedStatusChange{
		ID:            idWorker.NextId(),
		ApplicationID: a.ID,
		SourceStatus:  entry.From,
		TargetStatus:  entry.To,
		Reason:        entry.Reason,
		UserID:        entry.Actor.ID,
		UserName:      entry.Actor.Name,
		PerformedOn:   types.Timestamp(entry.Timestamp),
	}

	var ev *event.EventRecord
	err := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&change).Error; err != nil {
			return err
		}
		props := event.UpdatedProperties{{
			PropertyName: "StatusID", PropertyDesc: "Status",
			OldValue: entry.From, NewValue: entry.To,
		}}
		if entry.Reason != "" {
			props = append(props, event.UpdatedProperty{PropertyName: "Reason", PropertyDesc: "Reason", NewValue: entry.Reason})
		}
		if old, ok := entry.OldAttributes["notes"].(string); ok && old != a.Notes {
			props = append(props, event.UpdatedProperty{PropertyName: "Notes", PropertyDesc: "Notes", OldValue: old, NewValue: a.Notes})
		}

		var err error
		ev, err = event.CreateEvent(SourceTypeApplication, a.ID, a.Name, event.EventCategoryStateTransitioned, props,
			event.Creator{ID: entry.Actor.ID, Name: entry.Actor.Name}, tx)
		return err
	})
	if err != nil {
		return err
	}

	event.InvokeHandlersFunc(ev)
	return nil
}
