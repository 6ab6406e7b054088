package servehttp_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"statusflow/bizerror"
	"statusflow/domain/record"
	"statusflow/domain/state"
	"statusflow/domain/transition"
	"statusflow/servehttp"
	"statusflow/session"
	"statusflow/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ApplicationTransitionsRestAPI", func() {
	var (
		router *gin.Engine

		originList, originQuery = record.ListTransitionsFunc, record.QueryPerformedStatusChangesFunc
		originOne, originBatch  = record.TransitionApplicationFunc, record.TransitionApplicationsFunc
	)

	BeforeEach(func() {
		router = gin.Default()
		router.Use(bizerror.ErrorHandling())
		servehttp.RegisterApplicationTransitionsRestAPI(router, testinfra.InjectSecCtx(testinfra.BuildSecCtx(3, "application.update")))
	})

	AfterEach(func() {
		record.ListTransitionsFunc, record.QueryPerformedStatusChangesFunc = originList, originQuery
		record.TransitionApplicationFunc, record.TransitionApplicationsFunc = originOne, originBatch
	})

	Describe("handleListTransitions", func() {
		It("should reject malformed id", func() {
			req := httptest.NewRequest(http.MethodGet, "/v1/applications/abc/transitions", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(ContainSubstring(`"code":"common.bad_param"`))
		})

		It("should list candidates", func() {
			record.ListTransitionsFunc = func(ctx context.Context, id types.ID, sec *session.Context) (*record.TransitionPicker, error) {
				Expect(id).To(Equal(types.ID(10)))
				Expect(sec.Identity.ID).To(Equal(types.ID(3)))
				return &record.TransitionPicker{ApplicationID: id, CurrentStatus: "REVIEW", Candidates: []transition.Candidate[string]{
					{Edge: state.Edge[string]{Source: "REVIEW", Target: "APPROVED", Label: "Approve", AuthItem: "approve"}, Enabled: true, Valid: true},
				}}, nil
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/applications/10/transitions", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"applicationId":"10","currentStatus":"REVIEW","candidates":[{
				"source":"REVIEW","target":"APPROVED","label":"Approve","postLabel":"","icon":"","style":"",
				"authItem":"approve","confirmationRequired":false,"displayOrder":0,"enabled":true,"valid":true}]}`))
		})

		It("should translate not found", func() {
			record.ListTransitionsFunc = func(ctx context.Context, id types.ID, sec *session.Context) (*record.TransitionPicker, error) {
				return nil, bizerror.ErrNotFound
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/applications/10/transitions", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(body).To(MatchJSON(`{"code":"common.record_not_found","message":"record not found","data":null}`))
		})
	})

	Describe("handleTransition", func() {
		It("should require target", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/applications/10/transitions", bytes.NewReader([]byte(`{}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"common.bad_param",
				"message":"Key: 'TransitionRequest.Target' Error:Field validation for 'Target' failed on the 'required' tag",
				"data":[{"field":"Target","rule":"required"}]}`))
		})

		It("should answer 202 when confirmation is pending", func() {
			record.TransitionApplicationFunc = func(ctx context.Context, id types.ID, req record.TransitionRequest,
				sec *session.Context) (*record.TransitionResult, error) {
				Expect(req).To(Equal(record.TransitionRequest{Target: "APPROVED", Reason: "ok"}))
				return &record.TransitionResult{Status: transition.StatusAwaitingConfirmation, Label: "Approve"}, transition.ErrNeedsConfirmation
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/applications/10/transitions",
				bytes.NewReader([]byte(`{"target":"APPROVED","reason":"ok"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusAccepted))
			Expect(body).To(MatchJSON(`{"status":"AWAITING_CONFIRMATION","label":"Approve","postLabel":"","application":null}`))
		})

		It("should answer 200 with the post label on success", func() {
			notes := "checked"
			record.TransitionApplicationFunc = func(ctx context.Context, id types.ID, req record.TransitionRequest,
				sec *session.Context) (*record.TransitionResult, error) {
				Expect(req).To(Equal(record.TransitionRequest{Target: "APPROVED", Confirmed: true, Notes: &notes}))
				return &record.TransitionResult{Status: transition.StatusSucceeded, Label: "Approve", PostLabel: "Approved"}, nil
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/applications/10/transitions",
				bytes.NewReader([]byte(`{"target":"APPROVED","confirmed":true,"notes":"checked"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"status":"SUCCEEDED","label":"Approve","postLabel":"Approved","application":null}`))
		})

		It("should translate an already applied transition", func() {
			record.TransitionApplicationFunc = func(ctx context.Context, id types.ID, req record.TransitionRequest,
				sec *session.Context) (*record.TransitionResult, error) {
				return &record.TransitionResult{Status: transition.StatusRejected}, transition.ErrInvalidTransition
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/applications/10/transitions",
				bytes.NewReader([]byte(`{"target":"APPROVED"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusConflict))
			Expect(body).To(MatchJSON(`{"code":"transition.already_applied","message":"status has already been changed",
				"data":"status has already been changed"}`))
		})
	})

	Describe("handleBatchTransition", func() {
		summary := func() *transition.BatchSummary {
			return &transition.BatchSummary{BatchID: "b1", Total: 2, Succeeded: []types.ID{1}, Skipped: []types.ID{2},
				Failed: []transition.Failure{}, RolledBack: []types.ID{}}
		}

		It("should validate request", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/application-transitions",
				bytes.NewReader([]byte(`{"scopeId":"1","ids":[],"target":"APPROVED"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(ContainSubstring(`'BatchTransitionRequest.IDs' Error:Field validation for 'IDs' failed on the 'min' tag`))
		})

		It("should return summary and message", func() {
			record.TransitionApplicationsFunc = func(ctx context.Context, req record.BatchTransitionRequest,
				sec *session.Context) (*transition.BatchSummary, error) {
				Expect(req).To(Equal(record.BatchTransitionRequest{ScopeID: 1, IDs: []types.ID{1, 2}, Target: "APPROVED", SingleTransaction: true}))
				return summary(), nil
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/application-transitions",
				bytes.NewReader([]byte(`{"scopeId":"1","ids":["1","2"],"target":"APPROVED","singleTransaction":true}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"batchId":"b1","total":2,"postLabel":"","succeeded":["1"],"skipped":["2"],"failed":[],
				"rolledBack":[],"message":"1 out of 2 applications has been successfully updated."}`))
		})

		It("should answer 202 when confirmation is pending", func() {
			record.TransitionApplicationsFunc = func(ctx context.Context, req record.BatchTransitionRequest,
				sec *session.Context) (*transition.BatchSummary, error) {
				return &transition.BatchSummary{Total: 2}, transition.ErrNeedsConfirmation
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/application-transitions",
				bytes.NewReader([]byte(`{"scopeId":"1","ids":["1","2"],"target":"APPROVED"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusAccepted))
			Expect(body).To(ContainSubstring(`"message":"transition needs confirmation"`))
		})

		It("should answer 409 with the summary when aborted", func() {
			record.TransitionApplicationsFunc = func(ctx context.Context, req record.BatchTransitionRequest,
				sec *session.Context) (*transition.BatchSummary, error) {
				s := summary()
				s.Succeeded = []types.ID{}
				s.RolledBack = []types.ID{1}
				return s, fmt.Errorf("%w: %w", transition.ErrBatchAborted, errors.New("deadlock"))
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/application-transitions",
				bytes.NewReader([]byte(`{"scopeId":"1","ids":["1","2"],"target":"APPROVED","singleTransaction":true}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusConflict))
			Expect(body).To(MatchJSON(`{"code":"transition.batch_aborted","message":"batch aborted: deadlock","data":{
				"batchId":"b1","total":2,"postLabel":"","succeeded":[],"skipped":["2"],"failed":[],"rolledBack":["1"],
				"message":"0 out of 2 applications has been successfully updated."}}`))
		})

		It("should translate batch level rejection", func() {
			record.TransitionApplicationsFunc = func(ctx context.Context, req record.BatchTransitionRequest,
				sec *session.Context) (*transition.BatchSummary, error) {
				return nil, transition.ErrInconsistentSourceState
			}
			req := httptest.NewRequest(http.MethodPost, "/v1/application-transitions",
				bytes.NewReader([]byte(`{"scopeId":"1","ids":["1","2"],"target":"APPROVED"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(ContainSubstring(`"code":"transition.inconsistent_source_state"`))
		})
	})

	Describe("handleQueryStatusChanges", func() {
		It("should return history", func() {
			record.QueryPerformedStatusChangesFunc = func(ctx context.Context, id types.ID, sec *session.Context) ([]record.PerformedStatusChange, error) {
				return []record.PerformedStatusChange{{ID: 5, ApplicationID: id, SourceStatus: "REVIEW", TargetStatus: "APPROVED", UserID: 3}}, nil
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/applications/10/status-changes", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring(`"id":"5","applicationId":"10","sourceStatus":"REVIEW","targetStatus":"APPROVED"`))
		})

		It("should translate forbidden", func() {
			record.QueryPerformedStatusChangesFunc = func(ctx context.Context, id types.ID, sec *session.Context) ([]record.PerformedStatusChange, error) {
				return nil, bizerror.ErrForbidden
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/applications/10/status-changes", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(body).To(MatchJSON(`{"code":"security.forbidden","message":"access forbidden","data":"forbidden"}`))
		})
	})
})
