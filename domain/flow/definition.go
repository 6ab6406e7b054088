package flow

import (
	"errors"
	"fmt"
	"io"
	"statusflow/bizerror"

	"github.com/fundwit/go-commons/types"
	"gopkg.in/yaml.v3"
)

var ErrScopeRequired = errors.New("scopeId is required")

// Definition is the file form of a scope's edges, e.g.
//
//	scopeId: 100
//	fullMesh: false
//	states:
//	  - {id: DRAFT, label: Back to draft, postLabel: Moved to draft}
//	  - {id: REVIEW, label: Send to review, postLabel: Sent to review}
//	transitions:
//	  - {source: DRAFT, target: REVIEW, authItem: submit}
type Definition struct {
	ScopeID     types.ID               `yaml:"scopeId"`
	FullMesh    bool                   `yaml:"fullMesh"`
	States      []StateDefinition      `yaml:"states"`
	Transitions []StatusChangeCreating `yaml:"transitions"`
}

func ParseDefinition(r io.Reader) (*Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	var definition Definition
	if err := yaml.Unmarshal(data, &definition); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := definition.Validate(); err != nil {
		return nil, err
	}
	return &definition, nil
}

// Validate checks that transitions only mention declared states, when states are declared at all.
func (d *Definition) Validate() error {
	if d.ScopeID == 0 {
		return ErrScopeRequired
	}
	if len(d.States) == 0 {
		return nil
	}
	declared := map[string]bool{}
	for _, s := range d.States {
		declared[s.ID] = true
	}
	for _, t := range d.Transitions {
		if !declared[t.SourceStatus] {
			return fmt.Errorf("%w: %s", bizerror.ErrUnknownState, t.SourceStatus)
		}
		if !declared[t.TargetStatus] {
			return fmt.Errorf("%w: %s", bizerror.ErrUnknownState, t.TargetStatus)
		}
	}
	return nil
}

// StatusChanges expands the definition. With fullMesh every ordered pair of states is generated first and
// explicit transitions replace the generated entry of their pair.
func (d *Definition) StatusChanges() []StatusChangeCreating {
	if !d.FullMesh {
		return append([]StatusChangeCreating{}, d.Transitions...)
	}

	result := StatesToTransitions(d.States)
	index := map[[2]string]int{}
	for i, c := range result {
		index[[2]string{c.SourceStatus, c.TargetStatus}] = i
	}
	for _, t := range d.Transitions {
		if i, found := index[[2]string{t.SourceStatus, t.TargetStatus}]; found {
			result[i] = t
			continue
		}
		result = append(result, t)
	}
	return result
}

// StatesToTransitions connects every state to every other one. The texts of each transition come from its
// target state.
func StatesToTransitions(states []StateDefinition) []StatusChangeCreating {
	result := []StatusChangeCreating{}
	for i, source := range states {
		for j, target := range states {
			if i == j {
				continue
			}
			result = append(result, StatusChangeCreating{
				SourceStatus: source.ID,
				TargetStatus: target.ID,
				Label:        target.Label,
				PostLabel:    target.PostLabel,
				Icon:         target.Icon,
				CssClass:     target.CssClass,
			})
		}
	}
	return result
}
