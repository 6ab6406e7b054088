package indices

import (
	"context"
	"fmt"
	"statusflow/client/es"
	"statusflow/domain/record"
	"statusflow/event"
	"statusflow/persistence"

	"github.com/fundwit/go-commons/types"
)

var (
	StatusChangeIndexName             = "status_changes"
	StatusChangeIndexEventHandlerName = "statusChangeIndexer"

	IndexStatusChangeFunc = IndexStatusChange
)

// StatusChangeMapping keeps identifiers and statuses as keywords so term filters match them exactly.
var StatusChangeMapping = es.H{
	"mappings": es.H{
		"properties": es.H{
			"id":              es.H{"type": "keyword"},
			"scopeId":         es.H{"type": "keyword"},
			"applicationId":   es.H{"type": "keyword"},
			"applicationName": es.H{"type": "text"},
			"sourceStatus":    es.H{"type": "keyword"},
			"targetStatus":    es.H{"type": "keyword"},
			"reason":          es.H{"type": "text"},
			"userId":          es.H{"type": "keyword"},
			"userName":        es.H{"type": "keyword"},
			"performedOn":     es.H{"type": "date"},
		},
	},
}

// EnsureStatusChangeIndex creates the status change index on first start.
func EnsureStatusChangeIndex(ctx context.Context) error {
	return es.EnsureIndexFunc(ctx, StatusChangeIndexName, StatusChangeMapping)
}

// StatusChangeDocument is the searchable form of a performed status change, keyed by its event id.
type StatusChangeDocument struct {
	ID              types.ID        `json:"id"`
	ScopeID         types.ID        `json:"scopeId"`
	ApplicationID   types.ID        `json:"applicationId"`
	ApplicationName string          `json:"applicationName"`
	SourceStatus    string          `json:"sourceStatus"`
	TargetStatus    string          `json:"targetStatus"`
	Reason          string          `json:"reason"`
	UserID          types.ID        `json:"userId"`
	UserName        string          `json:"userName"`
	PerformedOn     types.Timestamp `json:"performedOn"`
}

// DocumentFromEvent reports false for events that are not application transitions.
func DocumentFromEvent(e *event.EventRecord) (StatusChangeDocument, bool) {
	if e.SourceType != record.SourceTypeApplication || e.EventCategory != event.EventCategoryStateTransitioned {
		return StatusChangeDocument{}, false
	}
	doc := StatusChangeDocument{
		ID:              e.ID,
		ApplicationID:   e.SourceId,
		ApplicationName: e.SourceDesc,
		UserID:          e.CreatorId,
		UserName:        e.CreatorName,
		PerformedOn:     e.Timestamp,
	}
	if p, found := e.UpdatedProperties.Property("StatusID"); found {
		doc.SourceStatus = p.OldValue
		doc.TargetStatus = p.NewValue
	}
	if p, found := e.UpdatedProperties.Property("Reason"); found {
		doc.Reason = p.NewValue
	}
	return doc, true
}

// IndexStatusChange indexes the event and marks it synced. Events of other kinds are ignored.
func IndexStatusChange(ctx context.Context, e *event.EventRecord) error {
	doc, ok := DocumentFromEvent(e)
	if !ok {
		return nil
	}
	a, err := record.LoadApplicationFunc(ctx, doc.ApplicationID)
	if err != nil {
		return fmt.Errorf("load application %d: %w", doc.ApplicationID, err)
	}
	doc.ScopeID = a.ScopeID

	if err := es.IndexFunc(ctx, StatusChangeIndexName, doc.ID, doc); err != nil {
		return err
	}
	return event.MarkSyncedFunc(e, persistence.ActiveDataSourceManager.GormDB(ctx))
}

func IndexStatusChangeEventHandle(e *event.EventRecord) *event.EventHandleResult {
	if _, ok := DocumentFromEvent(e); !ok {
		return nil
	}
	if err := IndexStatusChangeFunc(context.Background(), e); err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("index status change %d, %v", e.ID, err),
			HandlerIdentifier: StatusChangeIndexEventHandlerName,
		}
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: StatusChangeIndexEventHandlerName}
}
