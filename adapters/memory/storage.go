package memory

import (
	"context"
	"sync"

	"github.com/ryandem1/minesweeper-async/core"
)

// Store is a concurrent in-memory score store. State lives for the process.
type Store struct {
	mu     sync.Mutex
	total  float64
	checks int64
}

func New() *Store { return &Store{} }

// Add credits delta and returns the new running total.
func (s *Store) Add(_ context.Context, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := core.AddScore(s.total, delta)
	if err != nil {
		return 0, err
	}
	s.total = next
	s.checks++
	return next, nil
}

func (s *Store) Total(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, nil
}

// Checks is the number of credited boards.
func (s *Store) Checks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

var _ interface {
	Add(context.Context, float64) (float64, error)
	Total(context.Context) (float64, error)
} = (*Store)(nil)
