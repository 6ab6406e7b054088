package state_test

import (
	"statusflow/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func edge(from, to string) state.Edge[string] {
	return state.Edge[string]{Source: from, Target: to, Label: "to " + to, PostLabel: "moved to " + to, Enabled: true}
}

func targetsOf(edges []state.Edge[string]) []string {
	r := []string{}
	for _, e := range edges {
		r = append(r, e.Target)
	}
	return r
}

var _ = Describe("Graph", func() {
	var (
		graph    *state.Graph[string]
		warnings []state.IntegrityWarning[string]
	)

	BeforeEach(func() {
		//           PENDING   DOING   DONE
		// PENDING   -         V       V
		// DOING     V         -       V
		// DONE      V         X       -
		graph, warnings = state.Build([]state.Edge[string]{
			edge("PENDING", "DOING"),
			edge("PENDING", "DONE"),
			edge("DOING", "PENDING"),
			edge("DOING", "DONE"),
			edge("DONE", "PENDING"),
		})
	})

	Describe("Build", func() {
		It("should index edges by source and by target", func() {
			Expect(warnings).To(BeEmpty())
			Expect(targetsOf(graph.AllowedTargets("PENDING"))).To(Equal([]string{"DOING", "DONE"}))
			Expect(targetsOf(graph.AllowedTargets("DOING"))).To(Equal([]string{"PENDING", "DONE"}))
			Expect(targetsOf(graph.AllowedTargets("DONE"))).To(Equal([]string{"PENDING"}))

			sources := graph.SourcesReaching("DONE")
			Expect(sources).To(HaveLen(2))
			Expect(sources).To(HaveKey("PENDING"))
			Expect(sources).To(HaveKey("DOING"))
			Expect(graph.States()).To(Equal([]string{"PENDING", "DOING", "DONE"}))
		})

		It("should seed representatives with the first edge of a grouping", func() {
			rep, found := graph.Representative("PENDING")
			Expect(found).To(BeTrue())
			Expect(rep.Target).To(Equal("DOING"))

			rep, found = graph.TargetRepresentative("PENDING")
			Expect(found).To(BeTrue())
			Expect(rep.Source).To(Equal("DOING"))

			_, found = graph.Representative("UNKNOWN")
			Expect(found).To(BeFalse())
		})

		It("should let a duplicated edge overwrite the earlier one and report it", func() {
			first := edge("A", "B")
			first.Label = "first"
			second := edge("A", "B")
			second.Label = "second"
			g, ws := state.Build([]state.Edge[string]{first, edge("A", "C"), second})

			Expect(ws).To(HaveLen(1))
			Expect(ws[0].Kind).To(Equal(state.WarningDuplicate))
			Expect(ws[0].Previous.Label).To(Equal("first"))
			Expect(ws[0].Error()).To(Equal("transition A -> B: DUPLICATE"))

			allowed := g.AllowedTargets("A")
			Expect(targetsOf(allowed)).To(Equal([]string{"B", "C"}))
			Expect(allowed[0].Label).To(Equal("second"))
			Expect(g.SourcesReaching("B")["A"].Label).To(Equal("second"))
		})

		It("should leave out disabled edges and self loops", func() {
			disabled := edge("A", "B")
			disabled.Enabled = false
			g, ws := state.Build([]state.Edge[string]{disabled, edge("A", "A"), edge("A", "C")})

			Expect(ws).To(HaveLen(2))
			Expect(ws[0].Kind).To(Equal(state.WarningDisabled))
			Expect(ws[1].Kind).To(Equal(state.WarningSelfLoop))
			Expect(targetsOf(g.AllowedTargets("A"))).To(Equal([]string{"C"}))
			Expect(g.SourcesReaching("B")).To(BeEmpty())
		})
	})

	Describe("AllowedTargets", func() {
		It("should order by display order first and keep insertion order for the rest", func() {
			e1, e2, e3, e4, e5 := edge("S", "T1"), edge("S", "T2"), edge("S", "T3"), edge("S", "T4"), edge("S", "T5")
			e2.DisplayOrder = 20
			e4.DisplayOrder = 10
			e5.DisplayOrder = 20
			g, _ := state.Build([]state.Edge[string]{e1, e2, e3, e4, e5})

			Expect(targetsOf(g.AllowedTargets("S"))).To(Equal([]string{"T4", "T2", "T5", "T1", "T3"}))
		})

		It("should return empty for terminal and unknown states", func() {
			g, _ := state.Build([]state.Edge[string]{edge("DRAFT", "CLOSED")})
			Expect(g.AllowedTargets("CLOSED")).To(BeEmpty())
			Expect(g.AllowedTargets("CLOSED")).NotTo(BeNil())
			Expect(g.IsTerminal("CLOSED")).To(BeTrue())
			Expect(g.IsTerminal("DRAFT")).To(BeFalse())
			Expect(g.AllowedTargets("UNKNOWN")).To(BeEmpty())
		})

		It("should work with non string states", func() {
			g, _ := state.Build([]state.Edge[int]{
				{Source: 1, Target: 2, Enabled: true},
				{Source: 1, Target: 3, Enabled: true, DisplayOrder: 1},
			})
			allowed := g.AllowedTargets(1)
			Expect(allowed).To(HaveLen(2))
			Expect(allowed[0].Target).To(Equal(3))
			Expect(allowed[1].Target).To(Equal(2))
		})
	})

	Describe("SourcesReaching", func() {
		It("should return a copy that cannot change the graph", func() {
			sources := graph.SourcesReaching("PENDING")
			delete(sources, "DOING")
			Expect(graph.SourcesReaching("PENDING")).To(HaveKey("DOING"))
			Expect(graph.SourcesReaching("UNKNOWN")).To(BeEmpty())
		})
	})
})
