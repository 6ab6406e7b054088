package transition

import (
	"context"
	"fmt"
	"statusflow/domain/state"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type BatchOptions struct {
	// Workers bounds concurrent record processing in default mode. Values below 2 process records
	// one by one in input order.
	Workers int
	// Limiter, when set, throttles record processing.
	Limiter *rate.Limiter
}

type BatchExecutor[S comparable, R Stateful[S]] struct {
	executor *Executor[S, R]
	workers  int
	limiter  *rate.Limiter
}

func NewBatchExecutor[S comparable, R Stateful[S]](executor *Executor[S, R], opts BatchOptions) *BatchExecutor[S, R] {
	return &BatchExecutor[S, R]{executor: executor, workers: opts.Workers, limiter: opts.Limiter}
}

type BatchRequest[S comparable, R Stateful[S]] struct {
	Records   []R
	Target    S
	Confirmed bool
	Reason    string
	Actor     Actor

	// Authorize is checked for every record; records it denies are skipped. It must be safe for
	// concurrent use when the executor runs more than one worker.
	Authorize Authorizer[R]
	// GroupAuthorize, when set, is checked once for the whole batch.
	GroupAuthorize func(authItem string) bool
	AdminOverride  AdminOverride
	Update         Updater[R]

	SingleTransaction bool
}

type Failure struct {
	ID      types.ID `json:"id"`
	Message string   `json:"message"`
	Err     error    `json:"-"`
}

type BatchSummary struct {
	BatchID   string `json:"batchId"`
	Total     int    `json:"total"`
	PostLabel string `json:"postLabel"`

	Succeeded  []types.ID `json:"succeeded"`
	Skipped    []types.ID `json:"skipped"`
	Failed     []Failure  `json:"failed"`
	RolledBack []types.ID `json:"rolledBack"`
}

func newBatchSummary(total int) *BatchSummary {
	return &BatchSummary{
		BatchID:    uuid.New().String(),
		Total:      total,
		Succeeded:  []types.ID{},
		Skipped:    []types.ID{},
		Failed:     []Failure{},
		RolledBack: []types.ID{},
	}
}

func (s *BatchSummary) SucceededCount() int { return len(s.Succeeded) }
func (s *BatchSummary) SkippedCount() int   { return len(s.Skipped) }
func (s *BatchSummary) FailedCount() int    { return len(s.Failed) }

// Message renders the notification shown after a batch, e.g. "3 out of 5 applications has been
// successfully updated.".
func (s *BatchSummary) Message(noun string) string {
	return fmt.Sprintf("%d out of %d %s has been successfully updated.", s.SucceededCount(), s.Total, noun)
}

func (s *BatchSummary) fail(id types.ID, err error) {
	s.Failed = append(s.Failed, Failure{ID: id, Message: err.Error(), Err: err})
}

type resultKind int

const (
	// resultPending marks a record whose processing never reported back; it counts as failed.
	resultPending resultKind = iota
	resultSucceeded
	resultSkipped
	resultFailed
)

type recordResult struct {
	kind resultKind
	err  error
}

// ExecuteBatch moves every record to req.Target. Batch-level rejections are returned before any
// record is touched; per-record outcomes are reported in the summary.
func (b *BatchExecutor[S, R]) ExecuteBatch(ctx context.Context, req BatchRequest[S, R]) (*BatchSummary, error) {
	summary := newBatchSummary(len(req.Records))
	if len(req.Records) == 0 {
		return summary, nil
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "transition.batch")
	defer span.Finish()
	span.SetTag("batch.id", summary.BatchID)

	mode := "default"
	if req.SingleTransaction {
		mode = "single_transaction"
	}
	begin := time.Now()
	defer func() {
		batchDuration.WithLabelValues(mode).Observe(time.Since(begin).Seconds())
	}()

	source, err := commonSource[S](req.Records)
	if err != nil {
		return summary, err
	}

	m := state.NewMachine(source, b.executor.graph)
	admin := isAdmin(req.AdminOverride)
	group := req.GroupAuthorize
	if group == nil {
		group = func(string) bool { return true }
	}
	edge, err := b.executor.check(m, req.Target, group, admin)
	if err != nil {
		return summary, err
	}
	if edge.ConfirmationRequired && !req.Confirmed {
		return summary, ErrNeedsConfirmation
	}
	summary.PostLabel = edge.PostLabel

	authItem, required := m.RequiredAuthItem(req.Target)
	permitted := func(record R) bool {
		if admin || !required {
			return true
		}
		return req.Authorize != nil && req.Authorize(authItem, record)
	}

	log := logrus.WithFields(logrus.Fields{"batch": summary.BatchID, "from": source, "to": req.Target, "mode": mode})
	if req.SingleTransaction {
		err = b.runInTransaction(ctx, req, edge, permitted, summary)
	} else {
		err = b.runIndependently(ctx, req, edge, permitted, summary)
	}

	batchRecordsTotal.WithLabelValues("succeeded").Add(float64(summary.SucceededCount()))
	batchRecordsTotal.WithLabelValues("skipped").Add(float64(summary.SkippedCount()))
	batchRecordsTotal.WithLabelValues("failed").Add(float64(summary.FailedCount()))
	batchRecordsTotal.WithLabelValues("rolled_back").Add(float64(len(summary.RolledBack)))

	if err != nil {
		ext.Error.Set(span, true)
		log.Errorf("batch transition stopped: %v", err)
	} else {
		log.Infof("batch transition finished: %d succeeded, %d skipped, %d failed",
			summary.SucceededCount(), summary.SkippedCount(), summary.FailedCount())
	}
	return summary, err
}

func (b *BatchExecutor[S, R]) runIndependently(ctx context.Context, req BatchRequest[S, R], edge state.Edge[S],
	permitted func(R) bool, summary *BatchSummary) error {

	results := make([]recordResult, len(req.Records))
	if b.workers < 2 {
		for i, record := range req.Records {
			results[i] = b.runOne(ctx, req, edge, permitted, record)
		}
	} else {
		pool := pond.NewPool(b.workers)
		tasks := make([]pond.Task, len(req.Records))
		for i, record := range req.Records {
			i, record := i, record
			tasks[i] = pool.Submit(func() {
				results[i] = b.runOne(ctx, req, edge, permitted, record)
			})
		}
		pool.StopAndWait()
		for i, task := range tasks {
			if err := task.Wait(); err != nil && results[i].kind != resultFailed {
				results[i] = recordResult{kind: resultFailed, err: err}
			}
		}
	}

	for i, r := range results {
		id := req.Records[i].RecordID()
		switch r.kind {
		case resultSucceeded:
			summary.Succeeded = append(summary.Succeeded, id)
		case resultSkipped:
			summary.Skipped = append(summary.Skipped, id)
		case resultPending:
			summary.fail(id, ErrNotProcessed)
		default:
			summary.fail(id, r.err)
		}
	}
	return ctx.Err()
}

// runOne reports a panic of the authorizer, updater or store as a failure of that record only.
func (b *BatchExecutor[S, R]) runOne(ctx context.Context, req BatchRequest[S, R], edge state.Edge[S],
	permitted func(R) bool, record R) (result recordResult) {

	persisted := false
	defer func() {
		if ret := recover(); ret != nil {
			logrus.WithField("record", record.RecordID()).Errorf("batch record panicked: %v", ret)
			if persisted {
				// the audit hook panicked; the transition itself is committed
				result = recordResult{kind: resultSucceeded}
				return
			}
			result = recordResult{kind: resultFailed, err: fmt.Errorf("%w: %v", ErrRecordPanicked, ret)}
		}
	}()

	if err := b.wait(ctx); err != nil {
		return recordResult{kind: resultFailed, err: err}
	}
	if !permitted(record) {
		return recordResult{kind: resultSkipped}
	}
	entry, err := b.executor.apply(ctx, b.executor.store, record, edge, req.Reason, req.Actor, req.Update)
	if err != nil {
		return recordResult{kind: resultFailed, err: err}
	}
	persisted = true
	b.executor.runAudit(ctx, *entry)
	return recordResult{kind: resultSucceeded}
}

// runInTransaction applies the batch all-or-nothing, strictly in input order.
func (b *BatchExecutor[S, R]) runInTransaction(ctx context.Context, req BatchRequest[S, R], edge state.Edge[S],
	permitted func(R) bool, summary *BatchSummary) (err error) {

	tx, beginErr := b.executor.store.Begin(ctx)
	if beginErr != nil {
		return &PersistenceError{Cause: beginErr}
	}

	var applied []R
	var entries []AuditEntry[S, R]
	abort := func(cause error) error {
		if err := tx.Rollback(); err != nil {
			logrus.WithField("batch", summary.BatchID).Errorf("failed to roll back batch: %v", err)
		}
		for i, record := range applied {
			restore(record, entries[i].OldAttributes, edge.Source)
			summary.RolledBack = append(summary.RolledBack, record.RecordID())
		}
		return fmt.Errorf("%w: %w", ErrBatchAborted, cause)
	}

	var current R
	looping := true
	defer func() {
		if !looping {
			return
		}
		if ret := recover(); ret != nil {
			cause := fmt.Errorf("%w: %v", ErrRecordPanicked, ret)
			summary.fail(current.RecordID(), cause)
			err = abort(cause)
		}
	}()

	for _, record := range req.Records {
		current = record
		if err := b.wait(ctx); err != nil {
			return abort(err)
		}
		if !permitted(record) {
			summary.Skipped = append(summary.Skipped, record.RecordID())
			continue
		}
		entry, err := b.executor.apply(ctx, tx, record, edge, req.Reason, req.Actor, req.Update)
		if err != nil {
			summary.fail(record.RecordID(), err)
			return abort(err)
		}
		applied = append(applied, record)
		entries = append(entries, *entry)
	}
	looping = false

	if err := tx.Commit(); err != nil {
		return abort(&PersistenceError{Cause: err})
	}
	for _, record := range applied {
		summary.Succeeded = append(summary.Succeeded, record.RecordID())
	}
	for _, entry := range entries {
		b.executor.runAudit(ctx, entry)
	}
	return nil
}

func (b *BatchExecutor[S, R]) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.limiter != nil {
		return b.limiter.Wait(ctx)
	}
	return nil
}

func commonSource[S comparable, R Stateful[S]](records []R) (S, error) {
	source := records[0].CurrentState()
	for _, record := range records[1:] {
		if s := record.CurrentState(); s != source {
			return source, fmt.Errorf("%w: found %v and %v", ErrInconsistentSourceState, source, s)
		}
	}
	return source, nil
}
