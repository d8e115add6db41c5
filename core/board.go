package core

import (
	"fmt"
	"iter"
	"sync"
)

// neighborOffsets lists the eight surrounding offsets starting at the left
// neighbor and walking clockwise (y grows downward).
var neighborOffsets = [8]Coordinate{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// Board is a fully populated minesweeper board. Dimensions and the mine
// layout are fixed at construction; only the hit and flagged state of its
// spaces changes, under the board's own lock.
type Board struct {
	ID   BoardID
	Spec BoardSpec

	mu      sync.Mutex
	spaces  []BoardSpace // column-major
	flagged int
	retired bool
}

// NewBoard builds a board from an explicit mine layout in two passes: mines
// and adjacency counts are tallied first, then every space is materialized.
func NewBoard(id BoardID, spec BoardSpec, mines []Coordinate) (*Board, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(mines) != spec.Mines {
		return nil, fmt.Errorf("%w: expected %d mines, got %d", ErrInvalidConfiguration, spec.Mines, len(mines))
	}

	size := spec.Size()
	isMine := make([]bool, size)
	counts := make([]int, size)
	for _, m := range mines {
		if !spec.Contains(m) {
			return nil, fmt.Errorf("%w: mine at %s is off the board", ErrInvalidConfiguration, m)
		}
		i := spec.index(m)
		if isMine[i] {
			return nil, fmt.Errorf("%w: duplicate mine at %s", ErrInvalidConfiguration, m)
		}
		isMine[i] = true
		for _, off := range neighborOffsets {
			n := Coordinate{X: m.X + off.X, Y: m.Y + off.Y}
			if spec.Contains(n) {
				counts[spec.index(n)]++
			}
		}
	}

	spaces := make([]BoardSpace, size)
	for i := range spaces {
		c := spec.coordinateAt(i)
		sp := BoardSpace{X: c.X, Y: c.Y}
		switch {
		case isMine[i]:
			sp.Type, sp.Value = Mine, MineValue
		case counts[i] == 0:
			sp.Type = Blank
		default:
			sp.Type, sp.Value = Value, counts[i]
		}
		spaces[i] = sp
	}

	return &Board{ID: id, Spec: spec, spaces: spaces}, nil
}

// slot resolves c for a read or a mutation; retired boards answer nothing.
func (b *Board) slot(c Coordinate) (int, error) {
	if b.retired {
		return 0, fmt.Errorf("%w: %s is being checked", ErrNotFound, b.ID)
	}
	return slotIn(b.Spec, b.spaces, c)
}

func slotIn(spec BoardSpec, spaces []BoardSpace, c Coordinate) (int, error) {
	if !spec.Contains(c) {
		return 0, fmt.Errorf("%w: %s on a %dx%d board", ErrOutOfRange, c, spec.Length, spec.Height)
	}
	i := spec.index(c)
	if i >= len(spaces) {
		return 0, fmt.Errorf("%w: %s", ErrMissingSpace, c)
	}
	return i, nil
}

// Lookup returns the space at (x, y).
func (b *Board) Lookup(x, y int) (BoardSpace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.slot(Coordinate{X: x, Y: y})
	if err != nil {
		return BoardSpace{}, err
	}
	return b.spaces[i], nil
}

// Spaces returns a copy of every space, ordered by x then y.
func (b *Board) Spaces() []BoardSpace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BoardSpace(nil), b.spaces...)
}

// All iterates a fresh snapshot of the board on every call.
func (b *Board) All() iter.Seq[BoardSpace] {
	return func(yield func(BoardSpace) bool) {
		for _, sp := range b.Spaces() {
			if !yield(sp) {
				return
			}
		}
	}
}

// Neighbors returns the in-range spaces around c, left neighbor first, clockwise.
func (b *Board) Neighbors(c Coordinate) ([]BoardSpace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return neighborsIn(b.Spec, b.spaces, c)
}

func neighborsIn(spec BoardSpec, spaces []BoardSpace, c Coordinate) ([]BoardSpace, error) {
	if _, err := slotIn(spec, spaces, c); err != nil {
		return nil, err
	}
	out := make([]BoardSpace, 0, len(neighborOffsets))
	for _, off := range neighborOffsets {
		n := Coordinate{X: c.X + off.X, Y: c.Y + off.Y}
		if spec.Contains(n) {
			out = append(out, spaces[spec.index(n)])
		}
	}
	return out, nil
}

// IsCorrect reports whether every mine is flagged and every other space is hit.
func (b *Board) IsCorrect() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return correct(b.spaces)
}

func correct(spaces []BoardSpace) bool {
	for _, sp := range spaces {
		if sp.Type == Mine && !sp.Flagged {
			return false
		}
		if sp.Type != Mine && !sp.Hit {
			return false
		}
	}
	return true
}

// FlagCount is the number of currently flagged spaces.
func (b *Board) FlagCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flagged
}

// Snapshot captures the board state for scoring.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{ID: b.ID, Spec: b.Spec, spaces: append([]BoardSpace(nil), b.spaces...)}
}

// Retire freezes the board for checking and returns its final state. Every
// later Lookup, Hit, Flag or BatchHit fails with ErrNotFound. Only one caller
// can retire a board; the others get ErrNotFound.
func (b *Board) Retire() (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.retired {
		return Snapshot{}, fmt.Errorf("%w: %s is being checked", ErrNotFound, b.ID)
	}
	b.retired = true
	return Snapshot{ID: b.ID, Spec: b.Spec, spaces: append([]BoardSpace(nil), b.spaces...)}, nil
}

// Reinstate undoes Retire after a check that could not be completed.
func (b *Board) Reinstate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.retired = false
}

// Snapshot is an immutable copy of a board's state.
type Snapshot struct {
	ID     BoardID
	Spec   BoardSpec
	spaces []BoardSpace
}

// Spaces returns the captured spaces in column-major order.
func (s Snapshot) Spaces() []BoardSpace { return s.spaces }

// Lookup returns the captured space at (x, y).
func (s Snapshot) Lookup(x, y int) (BoardSpace, error) {
	i, err := slotIn(s.Spec, s.spaces, Coordinate{X: x, Y: y})
	if err != nil {
		return BoardSpace{}, err
	}
	return s.spaces[i], nil
}

// Neighbors returns the captured neighbors of c.
func (s Snapshot) Neighbors(c Coordinate) ([]BoardSpace, error) {
	return neighborsIn(s.Spec, s.spaces, c)
}

// IsCorrect reports whether the captured board is fully and correctly solved.
func (s Snapshot) IsCorrect() bool { return correct(s.spaces) }
