package bizerror

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrUnknownState      = errors.New("unknown state")
	ErrSelfTransition    = errors.New("source and target status must differ")
	ErrTransitionExisted = errors.New("status change existed")
	ErrStaleRecord       = errors.New("record has been changed by someone else")
)
