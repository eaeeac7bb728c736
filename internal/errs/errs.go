package errs

import "errors"

// Domain sentinels. Callers wrap them with %w and compare with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrDuplicateLabel = errors.New("duplicate part label")
	ErrInvalidInput   = errors.New("invalid input")
	ErrExternalQuery  = errors.New("external query failed")
)
