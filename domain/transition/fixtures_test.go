package transition_test

import (
	"context"
	"errors"
	"statusflow/domain/state"
	"statusflow/domain/transition"
	"sync"

	"github.com/fundwit/go-commons/types"
)

type application struct {
	id     types.ID
	status string
	notes  string
	owner  types.ID
}

func (a *application) RecordID() types.ID     { return a.id }
func (a *application) CurrentState() string   { return a.status }
func (a *application) SetState(s string)      { a.status = s }
func (a *application) StateAttribute() string { return "status" }
func (a *application) Attributes() map[string]interface{} {
	return map[string]interface{}{"id": a.id, "status": a.status, "notes": a.notes}
}
func (a *application) Restore(attributes map[string]interface{}) {
	a.status = attributes["status"].(string)
	a.notes = attributes["notes"].(string)
}

var errDisk = errors.New("disk full")

type memoryStore struct {
	mu sync.Mutex

	committed    map[types.ID]string
	fields       map[types.ID][]string
	failOn       map[types.ID]error
	persistCalls int

	beginErr  error
	commitErr error
	began     int
	commits   int
	rollbacks int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{committed: map[types.ID]string{}, fields: map[types.ID][]string{}, failOn: map[types.ID]error{}}
}

func (s *memoryStore) Persist(ctx context.Context, record *application, changedFields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistCalls++
	if err := s.failOn[record.id]; err != nil {
		return err
	}
	s.committed[record.id] = record.status
	s.fields[record.id] = changedFields
	return nil
}

func (s *memoryStore) Begin(ctx context.Context) (transition.Tx[string, *application], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.began++
	return &memoryTx{store: s, staged: map[types.ID]string{}}, nil
}

type memoryTx struct {
	store  *memoryStore
	staged map[types.ID]string
}

func (tx *memoryTx) Persist(ctx context.Context, record *application, changedFields []string) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.persistCalls++
	if err := tx.store.failOn[record.id]; err != nil {
		return err
	}
	tx.staged[record.id] = record.status
	return nil
}

func (tx *memoryTx) Commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.store.commitErr != nil {
		return tx.store.commitErr
	}
	tx.store.commits++
	for id, s := range tx.staged {
		tx.store.committed[id] = s
	}
	return nil
}

func (tx *memoryTx) Rollback() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.rollbacks++
	tx.staged = map[types.ID]string{}
	return nil
}

// DRAFT -> REVIEW -> APPROVED(approve, confirm) -> CLOSED
//
//	\-> REJECTED(reject)
func buildGraph() *state.Graph[string] {
	g, _ := state.Build([]state.Edge[string]{
		{Source: "DRAFT", Target: "REVIEW", Label: "Send to review", PostLabel: "Sent to review", Enabled: true},
		{Source: "REVIEW", Target: "APPROVED", Label: "Approve", PostLabel: "Approved", AuthItem: "approve",
			ConfirmationRequired: true, Enabled: true},
		{Source: "REVIEW", Target: "REJECTED", Label: "Reject", PostLabel: "Rejected", AuthItem: "reject", Enabled: true},
		{Source: "APPROVED", Target: "CLOSED", Label: "Close", PostLabel: "Closed", Enabled: true},
	})
	return g
}

func allow(items ...string) transition.Authorizer[*application] {
	return func(authItem string, record *application) bool {
		for _, item := range items {
			if item == authItem {
				return true
			}
		}
		return false
	}
}

func target(s string) *string {
	return &s
}

func admin() bool { return true }
