package engine

import (
	"context"
)

// ScoreStore keeps the running score across checked boards.
type ScoreStore interface {
	Add(ctx context.Context, delta float64) (total float64, err error)
	Total(ctx context.Context) (float64, error)
}

// Operation names a class of request for latency injection.
type Operation string

const (
	OpCreate Operation = "create"
	OpQuery  Operation = "query"
	OpAction Operation = "action"
	OpCheck  Operation = "check"
)

// Pauser suspends the caller after an operation has committed. Implementations
// should return early when ctx is done.
type Pauser interface {
	Pause(ctx context.Context, op Operation)
}

type noPause struct{}

func (noPause) Pause(context.Context, Operation) {}
