package record

import (
	"context"
	"fmt"
	"statusflow/bizerror"
	"statusflow/domain/transition"
	"statusflow/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// Store keeps applications in the active data source.
type Store struct{}

var _ transition.Store[string, *Application] = (*Store)(nil)

func (s *Store) Load(ctx context.Context, id types.ID) (*Application, error) {
	a := Application{}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadMany returns the applications of the scope among ids, ordered by id. Unknown ids are ignored.
func (s *Store) LoadMany(ctx context.Context, scopeID types.ID, ids []types.ID) ([]*Application, error) {
	records := []*Application{}
	if len(ids) == 0 {
		return records, nil
	}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).
		Where("scope_id = ? AND id IN (?)", scopeID, ids).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) Persist(ctx context.Context, a *Application, changedFields []string) error {
	if err := persist(persistence.ActiveDataSourceManager.GormDB(ctx), a, changedFields); err != nil {
		return err
	}
	a.loadedStatus = a.StatusID
	return nil
}

func (s *Store) Begin(ctx context.Context) (transition.Tx[string, *Application], error) {
	tx := persistence.ActiveDataSourceManager.GormDB(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormTx{db: tx}, nil
}

type gormTx struct {
	db      *gorm.DB
	written []*Application
}

func (t *gormTx) Persist(ctx context.Context, a *Application, changedFields []string) error {
	if err := persist(t.db, a, changedFields); err != nil {
		return err
	}
	t.written = append(t.written, a)
	return nil
}

func (t *gormTx) Commit() error {
	if err := t.db.Commit().Error; err != nil {
		return err
	}
	for _, a := range t.written {
		a.loadedStatus = a.StatusID
	}
	return nil
}

func (t *gormTx) Rollback() error {
	return t.db.Rollback().Error
}

// persist writes the changed columns only if the stored status is still the one the application was loaded with.
func persist(db *gorm.DB, a *Application, changedFields []string) error {
	attributes := a.Attributes()
	updates := map[string]interface{}{}
	for _, field := range changedFields {
		v, found := attributes[field]
		if !found {
			return fmt.Errorf("unknown application field %q", field)
		}
		updates[field] = v
	}

	r := db.Model(&Application{}).Where("id = ? AND status_id = ?", a.ID, a.loadedStatus).Updates(updates)
	if r.Error != nil {
		return r.Error
	}
	if r.RowsAffected != 1 {
		return bizerror.ErrStaleRecord
	}
	return nil
}
