package transition

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition       = errors.New("status has already been changed")
	ErrNotAllowed              = errors.New("transition is not allowed")
	ErrForbidden               = errors.New("transition is not permitted")
	ErrNeedsConfirmation       = errors.New("transition needs confirmation")
	ErrPersistenceFailed       = errors.New("failed to persist transition")
	ErrInconsistentSourceState = errors.New("all selected records must have the same source state")
	ErrInvalidUpdate           = errors.New("invalid transition update")
	ErrBatchAborted            = errors.New("batch aborted")
	ErrRolledBack              = errors.New("rolled back")
	ErrRecordPanicked          = errors.New("record processing panicked")
	ErrNotProcessed            = errors.New("record was not processed")
)

// PersistenceError carries the record store's error unchanged, so callers can inspect it for retry
// decisions while still matching ErrPersistenceFailed.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return ErrPersistenceFailed.Error() + ": " + e.Cause.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceFailed
}

func rejection(err error, from, to interface{}) error {
	return fmt.Errorf("%w: from %v to %v", err, from, to)
}
