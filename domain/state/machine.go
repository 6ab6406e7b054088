package state

// Machine answers transition questions for one record whose state was read when the machine was
// created. It is not safe for concurrent use.
type Machine[S comparable] struct {
	current S
	graph   *Graph[S]

	checked map[string]bool
}

func NewMachine[S comparable](current S, graph *Graph[S]) *Machine[S] {
	return &Machine[S]{current: current, graph: graph, checked: map[string]bool{}}
}

func (m *Machine[S]) CurrentState() S {
	return m.current
}

func (m *Machine[S]) Graph() *Graph[S] {
	return m.graph
}

func (m *Machine[S]) AllowedTargets() []Edge[S] {
	return m.graph.AllowedTargets(m.current)
}

func (m *Machine[S]) Edge(target S) (Edge[S], bool) {
	return m.graph.Edge(m.current, target)
}

func (m *Machine[S]) IsStructurallyAllowed(target S) bool {
	_, found := m.graph.Edge(m.current, target)
	return found
}

// RequiredAuthItem prefers the edge to target; without one it falls back to the source grouping's
// representative edge.
func (m *Machine[S]) RequiredAuthItem(target S) (string, bool) {
	if edge, found := m.graph.Edge(m.current, target); found {
		return edge.AuthItem, edge.AuthItem != ""
	}
	if edge, found := m.graph.Representative(m.current); found {
		return edge.AuthItem, edge.AuthItem != ""
	}
	return "", false
}

func (m *Machine[S]) IsCallerAuthorized(target S, authorize func(authItem string) bool) bool {
	authItem, required := m.RequiredAuthItem(target)
	if !required {
		return true
	}
	return m.Authorized(authItem, authorize)
}

// Authorized consults authorize at most once per auth item for the lifetime of the machine.
func (m *Machine[S]) Authorized(authItem string, authorize func(authItem string) bool) bool {
	if authItem == "" {
		return true
	}
	if status, found := m.checked[authItem]; found {
		return status
	}
	status := authorize != nil && authorize(authItem)
	m.checked[authItem] = status
	return status
}
