package transition

import (
	"context"
	"fmt"
	"statusflow/domain/state"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sirupsen/logrus"
)

// Executor performs single transitions over records of one scope. It holds no per-call state and
// may be shared, provided the store and audit hook are safe for concurrent use.
type Executor[S comparable, R Stateful[S]] struct {
	graph *state.Graph[S]
	store Store[S, R]
	audit AuditFunc[S, R]
	now   func() time.Time
}

func NewExecutor[S comparable, R Stateful[S]](graph *state.Graph[S], store Store[S, R]) *Executor[S, R] {
	return &Executor[S, R]{graph: graph, store: store, now: time.Now}
}

// WithAudit sets the hook invoked after every committed transition.
func (e *Executor[S, R]) WithAudit(audit AuditFunc[S, R]) *Executor[S, R] {
	e.audit = audit
	return e
}

func (e *Executor[S, R]) WithClock(now func() time.Time) *Executor[S, R] {
	e.now = now
	return e
}

func (e *Executor[S, R]) Graph() *state.Graph[S] {
	return e.graph
}

// Candidates lists the transitions the record could take next, annotated for the actor.
func (e *Executor[S, R]) Candidates(record R, authorize Authorizer[R], adminOverride AdminOverride) []Candidate[S] {
	m := state.NewMachine(record.CurrentState(), e.graph)
	return e.candidates(m, record, authorize, isAdmin(adminOverride))
}

// Execute runs one transition attempt. The returned outcome is never nil; the error is set for
// every status except SUCCEEDED and SELECTING_TARGET.
func (e *Executor[S, R]) Execute(ctx context.Context, req Request[S, R]) (*Outcome[S], error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "transition.execute")
	defer span.Finish()

	from := req.Record.CurrentState()
	m := state.NewMachine(from, e.graph)
	admin := isAdmin(req.AdminOverride)
	if req.Target == nil {
		out := &Outcome[S]{Status: StatusSelectingTarget, Candidates: e.candidates(m, req.Record, req.Authorize, admin)}
		return e.finish(span, req.Record, from, out)
	}

	edge, err := e.check(m, *req.Target, bind(req.Authorize, req.Record), admin)
	if err != nil {
		return e.finish(span, req.Record, from, &Outcome[S]{Status: StatusRejected, Edge: edge, Err: err})
	}
	if edge.ConfirmationRequired && !req.Confirmed {
		return e.finish(span, req.Record, from, &Outcome[S]{Status: StatusAwaitingConfirmation, Edge: edge, Err: ErrNeedsConfirmation})
	}

	entry, err := e.apply(ctx, e.store, req.Record, edge, req.Reason, req.Actor, req.Update)
	if err != nil {
		return e.finish(span, req.Record, from, &Outcome[S]{Status: StatusFailed, Edge: edge, Err: err})
	}
	out := &Outcome[S]{Status: StatusSucceeded, Edge: edge}
	out.AuditErr = e.runAudit(ctx, *entry)
	return e.finish(span, req.Record, from, out)
}

func (e *Executor[S, R]) candidates(m *state.Machine[S], record R, authorize Authorizer[R], admin bool) []Candidate[S] {
	bound := bind(authorize, record)
	result := []Candidate[S]{}
	offered := map[S]bool{}
	for _, edge := range m.AllowedTargets() {
		authorized := admin || m.Authorized(edge.AuthItem, bound)
		result = append(result, Candidate[S]{Edge: edge, Enabled: authorized, Valid: authorized})
		offered[edge.Target] = true
	}
	if admin {
		for _, s := range e.graph.States() {
			if s == m.CurrentState() || offered[s] {
				continue
			}
			result = append(result, Candidate[S]{Edge: overrideEdge(m, s), Enabled: true, Valid: true})
		}
	}
	return result
}

// check resolves the edge for target, or explains why the transition must not happen.
func (e *Executor[S, R]) check(m *state.Machine[S], target S, authorize func(string) bool, admin bool) (state.Edge[S], error) {
	from := m.CurrentState()
	if target == from {
		return state.Edge[S]{Source: from, Target: target}, rejection(ErrInvalidTransition, from, target)
	}
	if admin {
		return overrideEdge(m, target), nil
	}
	edge, found := m.Edge(target)
	if !found {
		return state.Edge[S]{Source: from, Target: target}, rejection(ErrNotAllowed, from, target)
	}
	if !m.IsCallerAuthorized(target, authorize) {
		return edge, rejection(ErrForbidden, from, target)
	}
	return edge, nil
}

func (e *Executor[S, R]) apply(ctx context.Context, p Persister[S, R], record R, edge state.Edge[S],
	reason string, actor Actor, update Updater[R]) (*AuditEntry[S, R], error) {

	from := record.CurrentState()
	oldAttributes := record.Attributes()

	var changed []string
	if update != nil {
		fields, err := update(record)
		if err != nil {
			restore(record, oldAttributes, from)
			return nil, fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
		}
		changed = append(changed, fields...)
	}
	record.SetState(edge.Target)
	changed = appendMissing(changed, record.StateAttribute())

	if err := p.Persist(ctx, record, changed); err != nil {
		restore(record, oldAttributes, from)
		return nil, &PersistenceError{Cause: err}
	}
	return &AuditEntry[S, R]{Record: record, OldAttributes: oldAttributes, From: from, To: edge.Target,
		Reason: reason, Actor: actor, Timestamp: e.now()}, nil
}

func (e *Executor[S, R]) runAudit(ctx context.Context, entry AuditEntry[S, R]) error {
	if e.audit == nil {
		return nil
	}
	if err := e.audit(ctx, entry); err != nil {
		logrus.WithFields(logrus.Fields{"record": entry.Record.RecordID(), "from": entry.From, "to": entry.To}).
			Warnf("audit of transition failed: %v", err)
		return err
	}
	return nil
}

func (e *Executor[S, R]) finish(span opentracing.Span, record R, from S, out *Outcome[S]) (*Outcome[S], error) {
	transitionsTotal.WithLabelValues(out.Status.String()).Inc()
	span.SetTag("transition.status", out.Status.String())

	entry := logrus.WithFields(logrus.Fields{"record": record.RecordID(), "from": from,
		"to": out.Edge.Target, "status": out.Status})
	switch out.Status {
	case StatusFailed:
		ext.Error.Set(span, true)
		entry.Errorf("transition failed: %v", out.Err)
	case StatusRejected:
		entry.Infof("transition rejected: %v", out.Err)
	case StatusSucceeded:
		entry.Info("transition performed")
	}
	return out, out.Err
}

// overrideEdge is used when an administrator moves a record outside the configured edges.
func overrideEdge[S comparable](m *state.Machine[S], target S) state.Edge[S] {
	if edge, found := m.Edge(target); found {
		return edge
	}
	edge := state.Edge[S]{Enabled: true}
	if rep, found := m.Graph().TargetRepresentative(target); found {
		edge = rep
	}
	edge.Source = m.CurrentState()
	edge.Target = target
	edge.AuthItem = ""
	edge.DisplayOrder = 0
	edge.ConfirmationRequired = true
	return edge
}

// restore undoes the in-memory effects of a transition that did not commit.
func restore[S comparable, R Stateful[S]](record R, oldAttributes map[string]interface{}, from S) {
	if r, ok := any(record).(Restorer); ok {
		r.Restore(oldAttributes)
	}
	record.SetState(from)
}

func bind[R any](authorize Authorizer[R], record R) func(string) bool {
	if authorize == nil {
		return nil
	}
	return func(authItem string) bool {
		return authorize(authItem, record)
	}
}

func isAdmin(adminOverride AdminOverride) bool {
	return adminOverride != nil && adminOverride()
}

func appendMissing(fields []string, field string) []string {
	for _, f := range fields {
		if f == field {
			return fields
		}
	}
	return append(fields, field)
}
