package engine

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/ryandem1/minesweeper-async/core"
)

// Registry owns the boards currently checked out to callers. Every insert,
// removal and capacity check happens under one lock.
type Registry struct {
	mu       sync.Mutex
	boards   map[core.BoardID]*core.Board
	pending  int // slots reserved by creates still generating
	capacity int
	newID    func() core.BoardID
}

// NewRegistry returns an empty registry admitting at most capacity boards.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		panic("NewRegistry requires a positive capacity")
	}
	return &Registry{
		boards:   make(map[core.BoardID]*core.Board, capacity),
		capacity: capacity,
		newID:    core.NewBoardID,
	}
}

// Create reserves a slot, generates a board outside the lock and admits it.
// The reservation is released if generation fails, so a full registry never
// pays for generating a board it cannot hold.
func (r *Registry) Create(spec core.BoardSpec) (*core.Board, error) {
	if err := r.reserve(); err != nil {
		return nil, err
	}

	board, err := core.Generate(r.newID(), spec)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending--
	if err != nil {
		return nil, err
	}
	if _, taken := r.boards[board.ID]; taken {
		return nil, fmt.Errorf("board id %s already outstanding", board.ID)
	}
	r.boards[board.ID] = board
	return board, nil
}

func (r *Registry) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if used := len(r.boards) + r.pending; used >= r.capacity {
		return fmt.Errorf("%w: %d of %d boards outstanding", core.ErrCapacityExceeded, used, r.capacity)
	}
	r.pending++
	return nil
}

// Get returns the outstanding board with the given id.
func (r *Registry) Get(id core.BoardID) (*core.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return b, nil
}

// Remove evicts and returns the board; it can never be retrieved again.
// Callers that must not lose the board retire it before removing it.
func (r *Registry) Remove(id core.BoardID) (*core.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	delete(r.boards, id)
	return b, nil
}

// List returns the outstanding boards ordered by id.
func (r *Registry) List() []*core.Board {
	r.mu.Lock()
	out := make([]*core.Board, 0, len(r.boards))
	for _, b := range r.boards {
		out = append(out, b)
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b *core.Board) int { return bytes.Compare(a.ID[:], b.ID[:]) })
	return out
}

// Len is the number of outstanding boards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Capacity is the configured ceiling.
func (r *Registry) Capacity() int { return r.capacity }
