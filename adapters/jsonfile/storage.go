package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ryandem1/minesweeper-async/core"
)

// ledger is the on-disk shape of the score file.
type ledger struct {
	Total   float64   `json:"total"`
	Checks  int64     `json:"checks"`
	Updated time.Time `json:"updated"`
}

// Store keeps the running score in a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	data ledger
}

func New(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &s.data)
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Add credits delta and writes the ledger before returning the new total.
func (s *Store) Add(_ context.Context, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := core.AddScore(s.data.Total, delta)
	if err != nil {
		return 0, err
	}
	prev := s.data
	s.data.Total = next
	s.data.Checks++
	s.data.Updated = time.Now().UTC()
	if err := s.persist(); err != nil {
		s.data = prev
		return 0, err
	}
	return next, nil
}

func (s *Store) Total(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Total, nil
}

// Checks is the number of credited boards.
func (s *Store) Checks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Checks
}
