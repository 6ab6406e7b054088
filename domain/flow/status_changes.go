package flow

import (
	"context"
	"statusflow/bizerror"
	"statusflow/common"
	"statusflow/domain/state"
	"statusflow/persistence"
	"statusflow/session"
	"sync"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

var (
	idWorker   = common.NewIdWorker()
	graphCache = cache.New(10*time.Minute, 20*time.Minute)

	LoadEnabledEdgesFunc    = LoadEnabledEdges
	GraphForScopeFunc       = GraphForScope
	QueryStatusChangesFunc  = QueryStatusChanges
	CreateStatusChangesFunc = CreateStatusChanges
	DisableStatusChangeFunc = DisableStatusChange
)

// LoadEnabledEdges returns the enabled edges of the scope in creation order.
func LoadEnabledEdges(ctx context.Context, scopeID types.ID) ([]state.Edge[string], error) {
	var records []PossibleStatusChange
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where("scope_id = ? AND enabled = ?", scopeID, true).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	edges := make([]state.Edge[string], 0, len(records))
	for _, record := range records {
		edges = append(edges, record.Edge())
	}
	return edges, nil
}

var (
	graphMu          sync.Mutex
	graphGenerations = map[string]uint64{}
)

// GraphForScope returns the transition graph of the scope, built once and cached until the scope's
// edges change. A graph loaded while the scope was invalidated is returned but not cached.
func GraphForScope(ctx context.Context, scopeID types.ID) (*state.Graph[string], error) {
	key := scopeID.String()
	if cached, found := graphCache.Get(key); found {
		return cached.(*state.Graph[string]), nil
	}
	generation := graphGeneration(key)
	edges, err := LoadEnabledEdgesFunc(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	graph, warnings := state.Build(edges)
	if len(warnings) > 0 {
		logrus.WithField("scope", scopeID).Warnf("%d integrity warnings found in transition graph", len(warnings))
	}

	graphMu.Lock()
	defer graphMu.Unlock()
	if graphGenerations[key] == generation {
		graphCache.SetDefault(key, graph)
	}
	return graph, nil
}

func graphGeneration(key string) uint64 {
	graphMu.Lock()
	defer graphMu.Unlock()
	return graphGenerations[key]
}

func InvalidateGraph(scopeID types.ID) {
	key := scopeID.String()
	graphMu.Lock()
	defer graphMu.Unlock()
	graphGenerations[key]++
	graphCache.Delete(key)
}

func QueryStatusChanges(ctx context.Context, query StatusChangeQuery, sec *session.Context) ([]PossibleStatusChange, error) {
	if !sec.HasScopeViewPerm(query.ScopeID) {
		return nil, bizerror.ErrForbidden
	}
	q := persistence.ActiveDataSourceManager.GormDB(ctx).Where("scope_id = ?", query.ScopeID)
	if !query.IncludeDisabled {
		q = q.Where("enabled = ?", true)
	}
	records := []PossibleStatusChange{}
	if err := q.Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CreateStatusChanges adds enabled edges to the scope, all or none.
func CreateStatusChanges(ctx context.Context, scopeID types.ID, creatings []StatusChangeCreating,
	sec *session.Context) ([]PossibleStatusChange, error) {

	if !canManage(scopeID, sec) {
		return nil, bizerror.ErrForbidden
	}
	pairs := map[[2]string]bool{}
	for _, c := range creatings {
		if c.SourceStatus == c.TargetStatus {
			return nil, bizerror.ErrSelfTransition
		}
		pair := [2]string{c.SourceStatus, c.TargetStatus}
		if pairs[pair] {
			return nil, bizerror.ErrTransitionExisted
		}
		pairs[pair] = true
	}

	now := time.Now().Round(time.Millisecond)
	created := make([]PossibleStatusChange, 0, len(creatings))
	err := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range creatings {
			var count int
			if err := tx.Model(&PossibleStatusChange{}).
				Where("scope_id = ? AND source_status = ? AND target_status = ? AND enabled = ?", scopeID, c.SourceStatus, c.TargetStatus, true).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return bizerror.ErrTransitionExisted
			}

			record := PossibleStatusChange{
				ID: idWorker.NextId(), ScopeID: scopeID, SourceStatus: c.SourceStatus, TargetStatus: c.TargetStatus,
				Label: c.Label, PostLabel: c.PostLabel, Icon: c.Icon, CssClass: c.CssClass,
				AuthItemName: c.AuthItemName, ConfirmationRequired: c.ConfirmationRequired, DisplayOrder: c.DisplayOrder,
				Enabled: true, CreateTime: now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			created = append(created, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	InvalidateGraph(scopeID)
	return created, nil
}

// DisableStatusChange removes the edge from its scope's graph while keeping the row.
func DisableStatusChange(ctx context.Context, id types.ID, sec *session.Context) error {
	record := PossibleStatusChange{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		return err
	}
	if !canManage(record.ScopeID, sec) {
		return bizerror.ErrForbidden
	}
	if err := db.Model(&PossibleStatusChange{}).Where("id = ?", id).Update("enabled", false).Error; err != nil {
		return err
	}
	InvalidateGraph(record.ScopeID)
	return nil
}

func canManage(scopeID types.ID, sec *session.Context) bool {
	return sec.Perms.HasRole(session.SystemAdminPermission) || sec.Perms.HasRole(ScopeRoleManager+"_"+scopeID.String())
}
