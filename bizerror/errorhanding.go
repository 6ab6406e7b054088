package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"statusflow/common"
	"statusflow/domain/transition"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const CommonInternalServerError = "common.internal_server_error"

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// checked in order, the first match wins
var mappings = []mapping{
	{ErrUnauthenticated, http.StatusUnauthorized, "common.unauthenticated", "unauthenticated"},
	{ErrForbidden, http.StatusForbidden, "security.forbidden", "access forbidden"},
	{ErrUnknownState, http.StatusBadRequest, "flow.unknown_state", "unknown state"},
	{ErrSelfTransition, http.StatusBadRequest, "flow.self_transition", "source and target status must differ"},
	{ErrTransitionExisted, http.StatusBadRequest, "flow.transition_existed", "status change existed"},
	{ErrStaleRecord, http.StatusConflict, "transition.stale_record", "record has been changed by someone else"},

	{transition.ErrInvalidTransition, http.StatusConflict, "transition.already_applied", "status has already been changed"},
	{transition.ErrNotAllowed, http.StatusBadRequest, "transition.not_allowed", "transition is not allowed"},
	{transition.ErrForbidden, http.StatusForbidden, "transition.forbidden", "transition is not permitted"},
	{transition.ErrNeedsConfirmation, http.StatusConflict, "transition.needs_confirmation", "transition needs confirmation"},
	{transition.ErrInconsistentSourceState, http.StatusBadRequest, "transition.inconsistent_source_state",
		"all selected records must have the same source state"},
	{transition.ErrInvalidUpdate, http.StatusBadRequest, "transition.invalid_update", "invalid transition update"},
	{transition.ErrBatchAborted, http.StatusConflict, "transition.batch_aborted", "batch aborted, all changes rolled back"},
	{transition.ErrPersistenceFailed, http.StatusInternalServerError, "transition.persistence_failed", "failed to persist transition"},
}

func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handle(c)
		c.Next()
	}
}

func handle(c *gin.Context) {
	if ret := recover(); ret != nil {
		err, ok := ret.(error)
		if !ok {
			err = fmt.Errorf("%v", ret)
		}
		HandleError(c, err)
	} else {
		if err := c.Errors.Last(); err != nil {
			HandleError(c, err)
		}
	}
}

func HandleError(c *gin.Context, err error) {
	status, body := Translate(err)
	if status >= http.StatusInternalServerError {
		logrus.Error(err)
	} else {
		logrus.Info(err)
	}
	c.JSON(status, body)
	c.Abort()
}

// Translate maps err to the http status and body returned to clients.
func Translate(err error) (int, *common.ErrorBody) {
	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	var bizErr common.BizError
	if errors.As(genericErr, &bizErr) {
		respond := bizErr.Respond()
		return respond.Status, &common.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data}
	}

	// bad request: io.EOF (no body)
	if errors.Is(genericErr, io.EOF) {
		return http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.body_not_found", Message: "body not found"}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(genericErr, &syntaxErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.invalid_body_format", Message: "invalid body format", Data: syntaxErr.Error()}
	}
	var validationErr validator.ValidationErrors
	if errors.As(genericErr, &validationErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.validation_failed", Message: "validation failed", Data: validationErr.Error()}
	}

	for _, m := range mappings {
		if errors.Is(genericErr, m.target) {
			return m.status, &common.ErrorBody{Code: m.code, Message: m.message, Data: genericErr.Error()}
		}
	}
	if errors.Is(genericErr, gorm.ErrRecordNotFound) || errors.Is(genericErr, ErrNotFound) {
		return http.StatusNotFound, &common.ErrorBody{Code: "common.record_not_found", Message: "record not found"}
	}
	return http.StatusInternalServerError, &common.ErrorBody{Code: CommonInternalServerError, Message: genericErr.Error()}
}
