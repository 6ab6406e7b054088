package servehttp

import (
	"errors"
	"net/http"
	"statusflow/common"
	"statusflow/domain/record"
	"statusflow/domain/transition"
	"statusflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	PathApplications           = "/v1/applications"
	PathApplicationTransitions = "/v1/application-transitions"

	batchNoun = "applications"
)

type applicationURI struct {
	ID types.ID `uri:"id" validate:"required,min=1"`
}

// BatchTransitionResponse carries the batch summary together with the notification text.
type BatchTransitionResponse struct {
	*transition.BatchSummary
	Message string `json:"message"`
}

func RegisterApplicationTransitionsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	h := &applicationTransitionsHandler{validator: validator.New()}

	g := r.Group(PathApplications, middleWares...)
	g.GET(":id/transitions", h.handleListTransitions)
	g.POST(":id/transitions", h.handleTransition)
	g.GET(":id/status-changes", h.handleQueryStatusChanges)

	r.Group(PathApplicationTransitions, middleWares...).POST("", h.handleBatchTransition)
}

type applicationTransitionsHandler struct {
	validator *validator.Validate
}

func (h *applicationTransitionsHandler) bindID(c *gin.Context) types.ID {
	uri := applicationURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(uri); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	return uri.ID
}

func (h *applicationTransitionsHandler) handleListTransitions(c *gin.Context) {
	id := h.bindID(c)
	picker, err := record.ListTransitionsFunc(c.Request.Context(), id, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, picker)
}

// handleTransition answers 202 with the transition to confirm when confirmation is pending.
func (h *applicationTransitionsHandler) handleTransition(c *gin.Context) {
	id := h.bindID(c)
	req := record.TransitionRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	result, err := record.TransitionApplicationFunc(c.Request.Context(), id, req, session.FindSecurityContext(c))
	if errors.Is(err, transition.ErrNeedsConfirmation) && result != nil {
		c.JSON(http.StatusAccepted, result)
		return
	}
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, result)
}

func (h *applicationTransitionsHandler) handleBatchTransition(c *gin.Context) {
	req := record.BatchTransitionRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	summary, err := record.TransitionApplicationsFunc(c.Request.Context(), req, session.FindSecurityContext(c))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, BatchTransitionResponse{BatchSummary: summary, Message: summary.Message(batchNoun)})
	case summary != nil && errors.Is(err, transition.ErrNeedsConfirmation):
		c.JSON(http.StatusAccepted, BatchTransitionResponse{BatchSummary: summary, Message: err.Error()})
	case summary != nil && errors.Is(err, transition.ErrBatchAborted):
		c.JSON(http.StatusConflict, &common.ErrorBody{Code: "transition.batch_aborted", Message: err.Error(),
			Data: BatchTransitionResponse{BatchSummary: summary, Message: summary.Message(batchNoun)}})
	default:
		panic(err)
	}
}

func (h *applicationTransitionsHandler) handleQueryStatusChanges(c *gin.Context) {
	id := h.bindID(c)
	changes, err := record.QueryPerformedStatusChangesFunc(c.Request.Context(), id, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, changes)
}
