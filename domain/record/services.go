package record

import (
	"context"
	"statusflow/bizerror"
	"statusflow/common"
	"statusflow/domain/flow"
	"statusflow/domain/state"
	"statusflow/domain/transition"
	"statusflow/persistence"
	"statusflow/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"golang.org/x/time/rate"
)

var (
	store = &Store{}

	batchOptions = BatchOptionsFromEnv()

	LoadApplicationFunc             = store.Load
	ListTransitionsFunc             = ListTransitions
	TransitionApplicationFunc       = TransitionApplication
	TransitionApplicationsFunc      = TransitionApplications
	QueryPerformedStatusChangesFunc = QueryPerformedStatusChanges
)

// BatchOptionsFromEnv reads BATCH_WORKERS (default 4) and BATCH_RATE_LIMIT in records per second
// (default 0, unlimited).
func BatchOptionsFromEnv() transition.BatchOptions {
	return NewBatchOptions(common.EnvInt("BATCH_WORKERS", 4), common.EnvFloat("BATCH_RATE_LIMIT", 0))
}

func NewBatchOptions(workers int, recordsPerSecond float64) transition.BatchOptions {
	opts := transition.BatchOptions{Workers: workers}
	if recordsPerSecond > 0 {
		burst := int(recordsPerSecond)
		if burst < 1 {
			burst = 1
		}
		opts.Limiter = rate.NewLimiter(rate.Limit(recordsPerSecond), burst)
	}
	return opts
}

func ConfigureBatch(opts transition.BatchOptions) {
	batchOptions = opts
}

func newExecutor(graph *state.Graph[string]) *transition.Executor[string, *Application] {
	return transition.NewExecutor[string, *Application](graph, store).
		WithAudit(func(ctx context.Context, entry transition.AuditEntry[string, *Application]) error {
			return AuditFunc(ctx, entry)
		})
}

func actorOf(sec *session.Context) transition.Actor {
	return transition.Actor{ID: sec.Identity.ID, Name: sec.Identity.Name}
}

// ListTransitions returns the transition picker of the application.
func ListTransitions(ctx context.Context, id types.ID, sec *session.Context) (*TransitionPicker, error) {
	a, err := LoadApplicationFunc(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(sec, a) {
		return nil, bizerror.ErrForbidden
	}

	picker := &TransitionPicker{ApplicationID: a.ID, CurrentStatus: a.StatusID, Candidates: []transition.Candidate[string]{}}
	if !canUpdate(sec, a) {
		return picker, nil
	}
	graph, err := flow.GraphForScopeFunc(ctx, a.ScopeID)
	if err != nil {
		return nil, err
	}
	picker.Candidates = newExecutor(graph).Candidates(a, Authorize(sec), IsAdmin(sec))
	return picker, nil
}

// TransitionApplication moves one application to req.Target. With a confirmation pending the result
// describes the transition to confirm and the error is transition.ErrNeedsConfirmation.
func TransitionApplication(ctx context.Context, id types.ID, req TransitionRequest, sec *session.Context) (*TransitionResult, error) {
	a, err := LoadApplicationFunc(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canUpdate(sec, a) {
		return nil, bizerror.ErrForbidden
	}
	graph, err := flow.GraphForScopeFunc(ctx, a.ScopeID)
	if err != nil {
		return nil, err
	}

	target := req.Target
	out, err := newExecutor(graph).Execute(ctx, transition.Request[string, *Application]{
		Record:        a,
		Target:        &target,
		Confirmed:     req.Confirmed,
		Reason:        req.Reason,
		Actor:         actorOf(sec),
		Authorize:     Authorize(sec),
		AdminOverride: IsAdmin(sec),
		Update:        editedBy(sec, req.Notes),
	})
	return &TransitionResult{Status: out.Status, Label: out.Edge.Label, PostLabel: out.Edge.PostLabel, Application: a}, err
}

// TransitionApplications moves the selected applications of one scope to the same target.
func TransitionApplications(ctx context.Context, req BatchTransitionRequest, sec *session.Context) (*transition.BatchSummary, error) {
	admin := sec.Perms.HasRole(session.SystemAdminPermission)
	if !admin && !sec.Perms.HasScopedRole(UpdatePermission, req.ScopeID) {
		return nil, bizerror.ErrForbidden
	}
	loaded, err := store.LoadMany(ctx, req.ScopeID, req.IDs)
	if err != nil {
		return nil, err
	}
	records, err := inRequestOrder(loaded, req.IDs)
	if err != nil {
		return nil, err
	}
	graph, err := flow.GraphForScopeFunc(ctx, req.ScopeID)
	if err != nil {
		return nil, err
	}

	batch := transition.NewBatchExecutor(newExecutor(graph), batchOptions)
	return batch.ExecuteBatch(ctx, transition.BatchRequest[string, *Application]{
		Records:           records,
		Target:            req.Target,
		Confirmed:         req.Confirmed,
		Reason:            req.Reason,
		Actor:             actorOf(sec),
		Authorize:         Authorize(sec),
		GroupAuthorize:    GroupAuthorize(sec, req.ScopeID),
		AdminOverride:     IsAdmin(sec),
		Update:            editedBy(sec, nil),
		SingleTransaction: req.SingleTransaction,
	})
}

// QueryPerformedStatusChanges returns the transition history of the application, oldest first.
func QueryPerformedStatusChanges(ctx context.Context, applicationID types.ID, sec *session.Context) ([]PerformedStatusChange, error) {
	a, err := LoadApplicationFunc(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !canView(sec, a) {
		return nil, bizerror.ErrForbidden
	}
	changes := []PerformedStatusChange{}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).Where("application_id = ?", applicationID).
		Order("performed_on ASC, id ASC").Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

// editedBy stamps the editor on the application and applies the optional notes.
func editedBy(sec *session.Context, notes *string) transition.Updater[*Application] {
	return func(a *Application) ([]string, error) {
		fields := []string{"last_editor_id", "last_edit_time"}
		a.LastEditorID = sec.Identity.ID
		a.LastEditTime = time.Now().Round(time.Millisecond)
		if notes != nil {
			a.Notes = *notes
			fields = append(fields, "notes")
		}
		return fields, nil
	}
}

// inRequestOrder arranges loaded applications as requested, dropping repeated ids. Every id must be loaded.
func inRequestOrder(loaded []*Application, ids []types.ID) ([]*Application, error) {
	byID := map[types.ID]*Application{}
	for _, a := range loaded {
		byID[a.ID] = a
	}
	result := make([]*Application, 0, len(byID))
	seen := map[types.ID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		a, found := byID[id]
		if !found {
			return nil, bizerror.ErrNotFound
		}
		result = append(result, a)
	}
	return result, nil
}
