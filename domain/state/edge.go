package state

// Edge is one configured, directed transition between two states of a record.
//
// AuthItem is empty when traversing the edge needs nothing beyond the base update permission.
// DisplayOrder is zero when the edge has no explicit position.
type Edge[S comparable] struct {
	Source S `json:"source"`
	Target S `json:"target"`

	Label     string `json:"label"`
	PostLabel string `json:"postLabel"`
	Icon      string `json:"icon"`
	Style     string `json:"style"`

	AuthItem             string `json:"authItem"`
	ConfirmationRequired bool   `json:"confirmationRequired"`
	DisplayOrder         int    `json:"displayOrder"`
	Enabled              bool   `json:"enabled"`
}

func (e Edge[S]) HasDisplayOrder() bool {
	return e.DisplayOrder != 0
}
