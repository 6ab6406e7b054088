package state

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

type WarningKind string

const (
	WarningDuplicate WarningKind = "DUPLICATE"
	WarningSelfLoop  WarningKind = "SELF_LOOP"
	WarningDisabled  WarningKind = "DISABLED"
)

// IntegrityWarning reports an edge that Build could not take as-is.
type IntegrityWarning[S comparable] struct {
	Kind     WarningKind
	Edge     Edge[S]
	Previous *Edge[S]
}

func (w IntegrityWarning[S]) Error() string {
	return fmt.Sprintf("transition %v -> %v: %s", w.Edge.Source, w.Edge.Target, w.Kind)
}

// SourceGroup holds every edge leaving one state.
type SourceGroup[S comparable] struct {
	Edge    Edge[S]
	Targets map[S]Edge[S]

	order []S
}

// TargetGroup holds every edge arriving at one state.
type TargetGroup[S comparable] struct {
	Edge    Edge[S]
	Sources map[S]Edge[S]
}

// Graph indexes a fixed set of enabled edges by source and by target. It is immutable once built
// and may be shared between goroutines.
type Graph[S comparable] struct {
	bySource map[S]*SourceGroup[S]
	byTarget map[S]*TargetGroup[S]
	states   []S
}

// Build indexes edges. Disabled edges and self loops are left out, and a repeated (source, target)
// pair replaces the earlier edge in place; each case is returned as a warning.
func Build[S comparable](edges []Edge[S]) (*Graph[S], []IntegrityWarning[S]) {
	g := &Graph[S]{
		bySource: map[S]*SourceGroup[S]{},
		byTarget: map[S]*TargetGroup[S]{},
	}
	var warnings []IntegrityWarning[S]
	seen := map[S]bool{}

	for _, edge := range edges {
		if !edge.Enabled {
			warnings = append(warnings, IntegrityWarning[S]{Kind: WarningDisabled, Edge: edge})
			continue
		}
		if edge.Source == edge.Target {
			warnings = append(warnings, IntegrityWarning[S]{Kind: WarningSelfLoop, Edge: edge})
			continue
		}

		sg := g.bySource[edge.Source]
		if sg == nil {
			sg = &SourceGroup[S]{Edge: edge, Targets: map[S]Edge[S]{}}
			g.bySource[edge.Source] = sg
		}
		if previous, found := sg.Targets[edge.Target]; found {
			p := previous
			warnings = append(warnings, IntegrityWarning[S]{Kind: WarningDuplicate, Edge: edge, Previous: &p})
		} else {
			sg.order = append(sg.order, edge.Target)
		}
		sg.Targets[edge.Target] = edge

		tg := g.byTarget[edge.Target]
		if tg == nil {
			tg = &TargetGroup[S]{Edge: edge, Sources: map[S]Edge[S]{}}
			g.byTarget[edge.Target] = tg
		}
		tg.Sources[edge.Source] = edge

		for _, s := range []S{edge.Source, edge.Target} {
			if !seen[s] {
				seen[s] = true
				g.states = append(g.states, s)
			}
		}
	}

	for _, w := range warnings {
		logrus.WithFields(logrus.Fields{"source": w.Edge.Source, "target": w.Edge.Target, "kind": w.Kind}).
			Warn("transition graph integrity warning")
	}
	return g, warnings
}

// AllowedTargets returns the edges leaving source: edges with a display order first, ascending,
// then the rest, each in build order. A terminal state yields an empty slice.
func (g *Graph[S]) AllowedTargets(source S) []Edge[S] {
	sg := g.bySource[source]
	if sg == nil {
		return []Edge[S]{}
	}
	edges := make([]Edge[S], 0, len(sg.order))
	for _, target := range sg.order {
		edges = append(edges, sg.Targets[target])
	}
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.HasDisplayOrder() != b.HasDisplayOrder() {
			return a.HasDisplayOrder()
		}
		return a.DisplayOrder < b.DisplayOrder
	})
	return edges
}

// SourcesReaching returns the edges arriving at target keyed by their source state.
func (g *Graph[S]) SourcesReaching(target S) map[S]Edge[S] {
	result := map[S]Edge[S]{}
	if tg := g.byTarget[target]; tg != nil {
		for source, edge := range tg.Sources {
			result[source] = edge
		}
	}
	return result
}

func (g *Graph[S]) Edge(source, target S) (Edge[S], bool) {
	if sg := g.bySource[source]; sg != nil {
		edge, found := sg.Targets[target]
		return edge, found
	}
	return Edge[S]{}, false
}

// Representative returns the first edge built for the source grouping.
func (g *Graph[S]) Representative(source S) (Edge[S], bool) {
	if sg := g.bySource[source]; sg != nil {
		return sg.Edge, true
	}
	return Edge[S]{}, false
}

// TargetRepresentative returns the first edge built for the target grouping.
func (g *Graph[S]) TargetRepresentative(target S) (Edge[S], bool) {
	if tg := g.byTarget[target]; tg != nil {
		return tg.Edge, true
	}
	return Edge[S]{}, false
}

func (g *Graph[S]) IsTerminal(s S) bool {
	return g.bySource[s] == nil
}

// States lists every state touched by an edge, in the order first seen.
func (g *Graph[S]) States() []S {
	return append([]S(nil), g.states...)
}
