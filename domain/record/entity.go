package record

import (
	"statusflow/domain/transition"
	"time"

	"github.com/fundwit/go-commons/types"
)

const (
	SourceTypeApplication = "APPLICATION"
	StatusAttribute       = "status_id"
)

// Application is the stateful record moved through a scope's transition graph.
type Application struct {
	ID      types.ID `json:"id" gorm:"primary_key"`
	ScopeID types.ID `json:"scopeId" gorm:"index"`
	Name    string   `json:"name"`
	OwnerID types.ID `json:"ownerId"`

	StatusID string `json:"statusId"`
	Notes    string `json:"notes" sql:"type:TEXT"`

	LastEditorID types.ID  `json:"lastEditorId"`
	LastEditTime time.Time `json:"lastEditTime"`
	CreateTime   time.Time `json:"createTime"`

	// status as last read from or written to the store
	loadedStatus string
}

var (
	_ transition.Stateful[string] = (*Application)(nil)
	_ transition.Restorer         = (*Application)(nil)
)

func (a *Application) AfterFind() error {
	a.loadedStatus = a.StatusID
	return nil
}

func (a *Application) RecordID() types.ID     { return a.ID }
func (a *Application) CurrentState() string   { return a.StatusID }
func (a *Application) SetState(s string)      { a.StatusID = s }
func (a *Application) StateAttribute() string { return StatusAttribute }

// Attributes are keyed by column name.
func (a *Application) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"id":             a.ID,
		"scope_id":       a.ScopeID,
		"name":           a.Name,
		"owner_id":       a.OwnerID,
		"status_id":      a.StatusID,
		"notes":          a.Notes,
		"last_editor_id": a.LastEditorID,
		"last_edit_time": a.LastEditTime,
		"create_time":    a.CreateTime,
	}
}

// PerformedStatusChange is the audit row of one committed transition.
type PerformedStatusChange struct {
	ID            types.ID `json:"id" gorm:"primary_key"`
	ApplicationID types.ID `json:"applicationId" gorm:"index"`

	SourceStatus string `json:"sourceStatus"`
	TargetStatus string `json:"targetStatus"`
	Reason       string `json:"reason" sql:"type:TEXT"`

	UserID      types.ID        `json:"userId"`
	UserName    string          `json:"userName"`
	PerformedOn types.Timestamp `json:"performedOn" sql:"type:DATETIME(6)"`
}

type TransitionRequest struct {
	Target    string  `json:"target" binding:"required"`
	Confirmed bool    `json:"confirmed"`
	Reason    string  `json:"reason"`
	Notes     *string `json:"notes"`
}

type BatchTransitionRequest struct {
	ScopeID           types.ID   `json:"scopeId" binding:"required"`
	IDs               []types.ID `json:"ids" binding:"required,min=1"`
	Target            string     `json:"target" binding:"required"`
	Confirmed         bool       `json:"confirmed"`
	Reason            string     `json:"reason"`
	SingleTransaction bool       `json:"singleTransaction"`
}

// TransitionPicker lists what an application can move to next.
type TransitionPicker struct {
	ApplicationID types.ID                       `json:"applicationId"`
	CurrentStatus string                         `json:"currentStatus"`
	Candidates    []transition.Candidate[string] `json:"candidates"`
}

type TransitionResult struct {
	Status      transition.Status `json:"status"`
	Label       string            `json:"label"`
	PostLabel   string            `json:"postLabel"`
	Application *Application      `json:"application"`
}

// Restore resets the fields a transition may change, taking them from Attributes output.
func (a *Application) Restore(attributes map[string]interface{}) {
	if v, ok := attributes["status_id"].(string); ok {
		a.StatusID = v
	}
	if v, ok := attributes["notes"].(string); ok {
		a.Notes = v
	}
	if v, ok := attributes["last_editor_id"].(types.ID); ok {
		a.LastEditorID = v
	}
	if v, ok := attributes["last_edit_time"].(time.Time); ok {
		a.LastEditTime = v
	}
}
