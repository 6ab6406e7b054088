package flow

import (
	"statusflow/domain/state"
	"time"

	"github.com/fundwit/go-commons/types"
)

const ScopeRoleManager = "manager"

// PossibleStatusChange is one configured edge of a scope. Disabled rows are kept for history and never
// reach a graph.
type PossibleStatusChange struct {
	ID      types.ID `json:"id" gorm:"primary_key"`
	ScopeID types.ID `json:"scopeId" gorm:"index"`

	SourceStatus string `json:"sourceStatus"`
	TargetStatus string `json:"targetStatus"`

	Label     string `json:"label"`
	PostLabel string `json:"postLabel"`
	Icon      string `json:"icon"`
	CssClass  string `json:"cssClass"`

	AuthItemName         string `json:"authItemName"`
	ConfirmationRequired bool   `json:"confirmationRequired"`
	DisplayOrder         int    `json:"displayOrder"`
	Enabled              bool   `json:"enabled"`

	CreateTime time.Time `json:"createTime"`
}

func (c *PossibleStatusChange) Edge() state.Edge[string] {
	return state.Edge[string]{
		Source:               c.SourceStatus,
		Target:               c.TargetStatus,
		Label:                c.Label,
		PostLabel:            c.PostLabel,
		Icon:                 c.Icon,
		Style:                c.CssClass,
		AuthItem:             c.AuthItemName,
		ConfirmationRequired: c.ConfirmationRequired,
		DisplayOrder:         c.DisplayOrder,
		Enabled:              c.Enabled,
	}
}

type StatusChangeCreating struct {
	SourceStatus string `json:"sourceStatus" yaml:"source" binding:"required" validate:"required"`
	TargetStatus string `json:"targetStatus" yaml:"target" binding:"required" validate:"required"`

	Label     string `json:"label"     yaml:"label"`
	PostLabel string `json:"postLabel" yaml:"postLabel"`
	Icon      string `json:"icon"      yaml:"icon"`
	CssClass  string `json:"cssClass"  yaml:"cssClass"`

	AuthItemName         string `json:"authItemName"         yaml:"authItem"`
	ConfirmationRequired bool   `json:"confirmationRequired" yaml:"confirmationRequired"`
	DisplayOrder         int    `json:"displayOrder"         yaml:"displayOrder"`
}

type StatusChangeQuery struct {
	ScopeID         types.ID `form:"scopeId" binding:"required"`
	IncludeDisabled bool     `form:"includeDisabled"`
}

// StateDefinition describes a state for full mesh generation. Label is the text of the action leading
// into the state, PostLabel the text shown after it was reached.
type StateDefinition struct {
	ID        string `json:"id"        yaml:"id"`
	Label     string `json:"label"     yaml:"label"`
	PostLabel string `json:"postLabel" yaml:"postLabel"`
	Icon      string `json:"icon"      yaml:"icon"`
	CssClass  string `json:"cssClass"  yaml:"cssClass"`
}
