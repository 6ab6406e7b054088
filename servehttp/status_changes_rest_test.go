package servehttp_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"statusflow/bizerror"
	"statusflow/domain/flow"
	"statusflow/servehttp"
	"statusflow/session"
	"statusflow/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StatusChangesRestAPI", func() {
	var (
		router *gin.Engine

		originQuery, originCreate, originDisable = flow.QueryStatusChangesFunc, flow.CreateStatusChangesFunc, flow.DisableStatusChangeFunc
	)

	BeforeEach(func() {
		router = gin.Default()
		router.Use(bizerror.ErrorHandling())
		servehttp.RegisterStatusChangesRestAPI(router, testinfra.InjectSecCtx(testinfra.BuildSecCtx(1, "manager_100")))
	})

	AfterEach(func() {
		flow.QueryStatusChangesFunc, flow.CreateStatusChangesFunc, flow.DisableStatusChangeFunc = originQuery, originCreate, originDisable
	})

	Describe("handleQuery", func() {
		It("should require scope", func() {
			req := httptest.NewRequest(http.MethodGet, servehttp.PathStatusChanges, nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(ContainSubstring(`"code":"common.bad_param"`))
		})

		It("should query edges of the scope", func() {
			flow.QueryStatusChangesFunc = func(ctx context.Context, query flow.StatusChangeQuery, sec *session.Context) ([]flow.PossibleStatusChange, error) {
				Expect(query).To(Equal(flow.StatusChangeQuery{ScopeID: 100, IncludeDisabled: true}))
				return []flow.PossibleStatusChange{{ID: 7, ScopeID: 100, SourceStatus: "DRAFT", TargetStatus: "REVIEW", Enabled: true}}, nil
			}
			req := httptest.NewRequest(http.MethodGet, servehttp.PathStatusChanges+"?scopeId=100&includeDisabled=true", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring(`"id":"7","scopeId":"100","sourceStatus":"DRAFT","targetStatus":"REVIEW"`))
		})
	})

	Describe("handleCreate", func() {
		It("should validate transitions", func() {
			req := httptest.NewRequest(http.MethodPost, servehttp.PathStatusChanges,
				bytes.NewReader([]byte(`{"scopeId":"100","transitions":[{"sourceStatus":"DRAFT"}]}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"Key: 'StatusChangesCreation.Transitions[0].TargetStatus' ` +
				`Error:Field validation for 'TargetStatus' failed on the 'required' tag",` +
				`"data":[{"field":"Transitions[0].TargetStatus","rule":"required"}]}`))
		})

		It("should require at least one transition", func() {
			req := httptest.NewRequest(http.MethodPost, servehttp.PathStatusChanges,
				bytes.NewReader([]byte(`{"scopeId":"100","transitions":[]}`)))
			status, _, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("should create edges", func() {
			flow.CreateStatusChangesFunc = func(ctx context.Context, scopeID types.ID, creatings []flow.StatusChangeCreating,
				sec *session.Context) ([]flow.PossibleStatusChange, error) {
				Expect(scopeID).To(Equal(types.ID(100)))
				Expect(creatings).To(Equal([]flow.StatusChangeCreating{{SourceStatus: "DRAFT", TargetStatus: "REVIEW", AuthItemName: "submit"}}))
				return []flow.PossibleStatusChange{{ID: 8, ScopeID: 100, SourceStatus: "DRAFT", TargetStatus: "REVIEW", AuthItemName: "submit", Enabled: true}}, nil
			}
			req := httptest.NewRequest(http.MethodPost, servehttp.PathStatusChanges,
				bytes.NewReader([]byte(`{"scopeId":"100","transitions":[{"sourceStatus":"DRAFT","targetStatus":"REVIEW","authItemName":"submit"}]}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusCreated))
			Expect(body).To(ContainSubstring(`"id":"8"`))
		})

		It("should translate existed edge", func() {
			flow.CreateStatusChangesFunc = func(ctx context.Context, scopeID types.ID, creatings []flow.StatusChangeCreating,
				sec *session.Context) ([]flow.PossibleStatusChange, error) {
				return nil, bizerror.ErrTransitionExisted
			}
			req := httptest.NewRequest(http.MethodPost, servehttp.PathStatusChanges,
				bytes.NewReader([]byte(`{"scopeId":"100","transitions":[{"sourceStatus":"DRAFT","targetStatus":"REVIEW"}]}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"flow.transition_existed","message":"status change existed","data":"status change existed"}`))
		})
	})

	Describe("handleDisable", func() {
		It("should disable edge", func() {
			var disabled types.ID
			flow.DisableStatusChangeFunc = func(ctx context.Context, id types.ID, sec *session.Context) error {
				disabled = id
				return nil
			}
			req := httptest.NewRequest(http.MethodDelete, servehttp.PathStatusChanges+"/8", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusNoContent))
			Expect(body).To(BeEmpty())
			Expect(disabled).To(Equal(types.ID(8)))
		})

		It("should reject zero id", func() {
			req := httptest.NewRequest(http.MethodDelete, servehttp.PathStatusChanges+"/0", nil)
			status, _, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})
})
