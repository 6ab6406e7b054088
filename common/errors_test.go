package common_test

import (
	"errors"
	"net/http"
	"statusflow/common"

	"github.com/go-playground/validator/v10"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Errors", func() {
	Describe("ErrBadParam", func() {
		Describe("Error", func() {
			It("should return default message if cause is nil", func() {
				err := common.ErrBadParam{}
				Expect(err.Error()).To(Equal("common.bad_param"))
			})
			It("should invoke the Error() function of cause property if cause is not nil", func() {
				err := common.ErrBadParam{Cause: errors.New("forbidden")}
				Expect(err.Error()).To(Equal("forbidden"))
			})
		})

		Describe("Respond", func() {
			It("should respond bad request with the message of cause", func() {
				err := &common.ErrBadParam{Cause: errors.New("name is required")}
				Expect(*err.Respond()).To(Equal(common.BizErrorDetail{
					Status: http.StatusBadRequest, Code: "common.bad_param", Message: "name is required"}))
				Expect(errors.Unwrap(err).Error()).To(Equal("name is required"))
			})

			It("should list violated fields of a validation failure", func() {
				type creation struct {
					Target string `validate:"required"`
					Order  int    `validate:"min=1"`
				}
				cause := validator.New().Struct(creation{})
				detail := (&common.ErrBadParam{Cause: cause}).Respond()
				Expect(detail.Status).To(Equal(http.StatusBadRequest))
				Expect(detail.Message).To(Equal(cause.Error()))
				Expect(detail.Data).To(Equal([]common.FieldViolation{
					{Field: "Target", Rule: "required"}, {Field: "Order", Rule: "min"}}))
			})
		})
	})
})

var _ = Describe("Env", func() {
	It("should fall back to defaults when variables are not set", func() {
		Expect(common.EnvInt("STATUSFLOW_TEST_NOT_EXIST", 3)).To(Equal(3))
		Expect(common.EnvFloat("STATUSFLOW_TEST_NOT_EXIST", 1.5)).To(Equal(1.5))
		Expect(common.EnvString("STATUSFLOW_TEST_NOT_EXIST", "x")).To(Equal("x"))
	})
})
