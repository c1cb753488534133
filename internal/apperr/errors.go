package apperr

import "errors"

var (
	ErrLockTimeout  = errors.New("lock timeout")
	ErrCorruptStore = errors.New("corrupt store")
	ErrInvalid      = errors.New("invalid")
)
