package indices

import (
	"context"
	"fmt"
	"statusflow/bizerror"
	"statusflow/event"
	"statusflow/persistence"
	"statusflow/session"
	"sync"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	lock    sync.Mutex
	running bool

	SyncBatchSize = 500

	IndicesSyncFunc        = IndicesSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

// ScheduleNewSyncRun starts a background sync unless one is running, and reports whether it started.
func ScheduleNewSyncRun(sec *session.Context) (bool, error) {
	if !sec.Perms.HasRole(session.SystemAdminPermission) {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	go func() {
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		if err := IndicesSyncFunc(context.Background()); err != nil {
			logrus.Warnf("indices sync: %v", err)
		}
	}()
	return true, nil
}

// IndicesSync indexes the status change events that have not reached the index yet, e.g. because the
// index was unavailable when they happened.
func IndicesSync(ctx context.Context) (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			err = fmt.Errorf("error on indices sync: %v", ret)
		}
	}()

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	var lastID types.ID
	for {
		records, err := event.FindUnsyncedFunc(event.EventCategoryStateTransitioned, lastID, SyncBatchSize, db)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			logrus.Info("indices sync: there are no more status changes to index")
			return nil
		}
		for i := range records {
			if err := IndexStatusChangeFunc(ctx, &records[i]); err != nil {
				logrus.Warnf("indices sync: index status change %d: %v", records[i].ID, err)
			}
		}
		lastID = records[len(records)-1].ID
	}
}
