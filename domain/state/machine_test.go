package state_test

import (
	"statusflow/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Machine", func() {
	var graph *state.Graph[string]

	BeforeEach(func() {
		review := edge("DRAFT", "REVIEW")
		approve := edge("REVIEW", "APPROVED")
		approve.AuthItem = "approve"
		approve.ConfirmationRequired = true
		reject := edge("REVIEW", "REJECTED")
		reject.AuthItem = "reject"
		back := edge("REVIEW", "DRAFT")
		graph, _ = state.Build([]state.Edge[string]{review, approve, reject, back})
	})

	Describe("IsStructurallyAllowed", func() {
		It("should follow the edges of the current state", func() {
			m := state.NewMachine("REVIEW", graph)
			Expect(m.CurrentState()).To(Equal("REVIEW"))
			Expect(m.IsStructurallyAllowed("APPROVED")).To(BeTrue())
			Expect(m.IsStructurallyAllowed("DRAFT")).To(BeTrue())
			Expect(m.IsStructurallyAllowed("REVIEW")).To(BeFalse())

			m = state.NewMachine("DRAFT", graph)
			Expect(m.IsStructurallyAllowed("APPROVED")).To(BeFalse())
			Expect(targetsOf(m.AllowedTargets())).To(Equal([]string{"REVIEW"}))
		})
	})

	Describe("RequiredAuthItem", func() {
		It("should prefer the specific edge", func() {
			m := state.NewMachine("REVIEW", graph)
			item, required := m.RequiredAuthItem("REJECTED")
			Expect(required).To(BeTrue())
			Expect(item).To(Equal("reject"))

			item, required = m.RequiredAuthItem("DRAFT")
			Expect(required).To(BeFalse())
			Expect(item).To(BeEmpty())
		})

		It("should fall back to the representative edge when no edge to the target exists", func() {
			m := state.NewMachine("REVIEW", graph)
			item, required := m.RequiredAuthItem("UNKNOWN")
			Expect(required).To(BeTrue())
			Expect(item).To(Equal("approve"))

			m = state.NewMachine("APPROVED", graph)
			_, required = m.RequiredAuthItem("DRAFT")
			Expect(required).To(BeFalse())
		})
	})

	Describe("IsCallerAuthorized", func() {
		It("should authorize edges without auth item by default", func() {
			m := state.NewMachine("DRAFT", graph)
			Expect(m.IsCallerAuthorized("REVIEW", func(string) bool { return false })).To(BeTrue())
		})

		It("should consult the predicate once per auth item", func() {
			calls := map[string]int{}
			authorize := func(item string) bool {
				calls[item]++
				return item == "approve"
			}
			m := state.NewMachine("REVIEW", graph)
			Expect(m.IsCallerAuthorized("APPROVED", authorize)).To(BeTrue())
			Expect(m.IsCallerAuthorized("APPROVED", authorize)).To(BeTrue())
			Expect(m.IsCallerAuthorized("REJECTED", authorize)).To(BeFalse())
			Expect(m.IsCallerAuthorized("REJECTED", authorize)).To(BeFalse())
			Expect(m.IsCallerAuthorized("UNKNOWN", authorize)).To(BeTrue())
			Expect(calls).To(Equal(map[string]int{"approve": 1, "reject": 1}))
		})

		It("should deny a required auth item when no predicate is given", func() {
			m := state.NewMachine("REVIEW", graph)
			Expect(m.IsCallerAuthorized("APPROVED", nil)).To(BeFalse())
		})
	})
})
