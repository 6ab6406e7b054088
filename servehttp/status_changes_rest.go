package servehttp

import (
	"net/http"
	"statusflow/common"
	"statusflow/domain/flow"
	"statusflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const PathStatusChanges = "/v1/status-changes"

type StatusChangesCreation struct {
	ScopeID     types.ID                    `json:"scopeId" validate:"required"`
	Transitions []flow.StatusChangeCreating `json:"transitions" validate:"required,min=1,dive"`
}

type statusChangeURI struct {
	ID types.ID `uri:"id" validate:"required,min=1"`
}

func RegisterStatusChangesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	h := &statusChangesHandler{validator: validator.New()}

	g := r.Group(PathStatusChanges, middleWares...)
	g.GET("", h.handleQuery)
	g.POST("", h.handleCreate)
	g.DELETE(":id", h.handleDisable)
}

type statusChangesHandler struct {
	validator *validator.Validate
}

func (h *statusChangesHandler) handleQuery(c *gin.Context) {
	query := flow.StatusChangeQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	changes, err := flow.QueryStatusChangesFunc(c.Request.Context(), query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, changes)
}

func (h *statusChangesHandler) handleCreate(c *gin.Context) {
	creation := StatusChangesCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	created, err := flow.CreateStatusChangesFunc(c.Request.Context(), creation.ScopeID, creation.Transitions,
		session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *statusChangesHandler) handleDisable(c *gin.Context) {
	uri := statusChangeURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(uri); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err := flow.DisableStatusChangeFunc(c.Request.Context(), uri.ID, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}
