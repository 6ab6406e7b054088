package transition

import (
	"context"
	"encoding/json"
	"statusflow/domain/state"
	"time"

	"github.com/fundwit/go-commons/types"
)

// Stateful is a record whose lifecycle is governed by a transition graph.
type Stateful[S comparable] interface {
	RecordID() types.ID
	CurrentState() S
	SetState(s S)
	// StateAttribute names the attribute holding the state, as understood by the record store.
	StateAttribute() string
	Attributes() map[string]interface{}
}

// Restorer is implemented by records that can roll back in-memory changes from the attributes they
// had before a transition. Records without it only get their state reset when a transition fails.
type Restorer interface {
	Restore(attributes map[string]interface{})
}

type Persister[S comparable, R Stateful[S]] interface {
	Persist(ctx context.Context, record R, changedFields []string) error
}

type Tx[S comparable, R Stateful[S]] interface {
	Persister[S, R]
	Commit() error
	Rollback() error
}

type Store[S comparable, R Stateful[S]] interface {
	Persister[S, R]
	Begin(ctx context.Context) (Tx[S, R], error)
}

// Authorizer reports whether the acting user may use authItem on record.
type Authorizer[R any] func(authItem string, record R) bool

// AdminOverride reports whether the acting user bypasses structural and authorization checks.
type AdminOverride func() bool

// Updater applies caller field updates to a record before its state changes and returns the names
// of the changed attributes.
type Updater[R any] func(record R) ([]string, error)

type Actor struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

type AuditEntry[S comparable, R Stateful[S]] struct {
	Record        R
	OldAttributes map[string]interface{}
	From          S
	To            S
	Reason        string
	Actor         Actor
	Timestamp     time.Time
}

type AuditFunc[S comparable, R Stateful[S]] func(ctx context.Context, entry AuditEntry[S, R]) error

type Status int

const (
	StatusSelectingTarget Status = iota
	StatusAwaitingConfirmation
	StatusSucceeded
	StatusFailed
	StatusRejected
)

var statusNames = map[Status]string{
	StatusSelectingTarget:      "SELECTING_TARGET",
	StatusAwaitingConfirmation: "AWAITING_CONFIRMATION",
	StatusSucceeded:            "SUCCEEDED",
	StatusFailed:               "FAILED",
	StatusRejected:             "REJECTED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Candidate is one entry of a transition picker.
type Candidate[S comparable] struct {
	state.Edge[S]

	// Enabled is set when the edge exists and the actor is authorized to use it.
	Enabled bool `json:"enabled"`
	// Valid mirrors the authorization result and is used to grey out entries.
	Valid bool `json:"valid"`
}

type Outcome[S comparable] struct {
	Status     Status         `json:"status"`
	Edge       state.Edge[S]  `json:"edge"`
	Candidates []Candidate[S] `json:"candidates,omitempty"`

	Err      error `json:"-"`
	AuditErr error `json:"-"`
}

type Request[S comparable, R Stateful[S]] struct {
	Record R
	// Target is nil when the caller has not chosen a target yet.
	Target    *S
	Confirmed bool
	Reason    string
	Actor     Actor

	Authorize     Authorizer[R]
	AdminOverride AdminOverride
	Update        Updater[R]
}
