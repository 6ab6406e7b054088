package common

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const CodeBadParam = "common.bad_param"

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// BizError is implemented by errors that carry their own HTTP response.
type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

// FieldViolation names a request field rejected by validation and the failed rule.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ErrBadParam wraps binding and validation failures of a request.
type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}

func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return CodeBadParam
}

// Respond lists the violated fields as data when the cause is a validation failure.
func (e *ErrBadParam) Respond() *BizErrorDetail {
	detail := &BizErrorDetail{Status: http.StatusBadRequest, Code: CodeBadParam, Message: e.Error()}
	var verrs validator.ValidationErrors
	if errors.As(e.Cause, &verrs) {
		violations := make([]FieldViolation, 0, len(verrs))
		for _, fe := range verrs {
			violations = append(violations, FieldViolation{Field: fieldPath(fe.Namespace()), Rule: fe.Tag()})
		}
		detail.Data = violations
	}
	return detail
}

// fieldPath drops the struct name heading a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
