package core

import "errors"

// Request-scoped failures. They are returned wrapped with context, so match
// them with errors.Is.
var (
	ErrInvalidConfiguration = errors.New("invalid board configuration")
	ErrOutOfRange           = errors.New("coordinate out of range")
	ErrNotFound             = errors.New("board not found")
	ErrAlreadyHit           = errors.New("space already hit")
	ErrFlagLimitExceeded    = errors.New("flag limit exceeded")
	ErrInvalidBatch         = errors.New("invalid batch")
	ErrCapacityExceeded     = errors.New("board capacity exceeded")
	ErrUnknownPolicy        = errors.New("unknown scoring policy")

	// ErrMissingSpace signals a broken board invariant and should never surface.
	ErrMissingSpace = errors.New("space missing from board")
)
