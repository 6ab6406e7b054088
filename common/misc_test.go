package common_test

import (
	"statusflow/common"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("IdWorker", func() {
	It("should issue increasing ids", func() {
		w := common.NewIdWorker()
		first := w.NextId()
		second := w.NextId()
		Expect(first).ToNot(BeZero())
		Expect(second > first).To(BeTrue())
	})
})
