package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

// BoardID uniquely identifies an outstanding board. It also seeds the board's
// mine layout, so equal identifiers reproduce equal boards.
type BoardID = uuid.UUID

// NewBoardID returns a fresh random identifier.
func NewBoardID() BoardID { return uuid.New() }

// ParseBoardID parses the canonical string form of a board identifier.
func ParseBoardID(s string) (BoardID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrNotFound, s)
	}
	return id, nil
}

// seededRand derives a deterministic PCG source from the identifier bytes.
func seededRand(id BoardID) *rand.Rand {
	return rand.New(rand.NewPCG(binary.BigEndian.Uint64(id[:8]), binary.BigEndian.Uint64(id[8:])))
}

// SpaceType classifies a space.
type SpaceType int

const (
	Blank SpaceType = iota
	Value
	Mine
)

func (t SpaceType) String() string {
	switch t {
	case Blank:
		return "blank"
	case Value:
		return "value"
	case Mine:
		return "mine"
	default:
		return fmt.Sprintf("SpaceType(%d)", int(t))
	}
}

// MarshalText renders the classification by name.
func (t SpaceType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses a classification name.
func (t *SpaceType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "blank":
		*t = Blank
	case "value":
		*t = Value
	case "mine":
		*t = Mine
	default:
		return fmt.Errorf("unknown space type %q", b)
	}
	return nil
}

// MineValue is the nominal value carried by mines. It is not an adjacency count.
const MineValue = 1

// Coordinate addresses a space; x runs along the length, y along the height.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coordinate) String() string { return fmt.Sprintf("(%d, %d)", c.X, c.Y) }

// BoardSpace is one cell of a board. Hit and Flagged are never both true.
type BoardSpace struct {
	X       int       `json:"x"`
	Y       int       `json:"y"`
	Type    SpaceType `json:"type"`
	Value   int       `json:"value"`
	Hit     bool      `json:"hit"`
	Flagged bool      `json:"flagged"`
}

// Coordinate returns the space's position.
func (s BoardSpace) Coordinate() Coordinate { return Coordinate{X: s.X, Y: s.Y} }

// BoardSpec holds the immutable dimensions of a board.
type BoardSpec struct {
	Length int `json:"length"`
	Height int `json:"height"`
	Mines  int `json:"mines"`
}

// DefaultBoardSpec is the classic beginner board.
func DefaultBoardSpec() BoardSpec { return BoardSpec{Length: 9, Height: 9, Mines: 10} }

// Size is the number of spaces on the board.
func (s BoardSpec) Size() int { return s.Length * s.Height }

// MaxSpaces is the largest board area the generator accepts. Deployments
// usually configure a much smaller ceiling through ValidateWithin.
const MaxSpaces = 1 << 20

// Validate requires positive dimensions, an area of at most MaxSpaces and
// 0 < mines < length*height.
func (s BoardSpec) Validate() error { return s.ValidateWithin(MaxSpaces) }

// ValidateWithin is Validate with a tighter area ceiling. A limit outside
// (0, MaxSpaces] means MaxSpaces.
func (s BoardSpec) ValidateWithin(maxSpaces int) error {
	if maxSpaces <= 0 || maxSpaces > MaxSpaces {
		maxSpaces = MaxSpaces
	}
	if s.Length <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidConfiguration, s.Length, s.Height)
	}
	if s.Length > maxSpaces/s.Height {
		return fmt.Errorf("%w: board %dx%d exceeds %d spaces", ErrInvalidConfiguration, s.Length, s.Height, maxSpaces)
	}
	if s.Mines <= 0 || s.Mines >= s.Size() {
		return fmt.Errorf("%w: mines must be in (0, %d), got %d", ErrInvalidConfiguration, s.Size(), s.Mines)
	}
	return nil
}

// Contains reports whether c lies on the board.
func (s BoardSpec) Contains(c Coordinate) bool {
	return c.X >= 0 && c.X < s.Length && c.Y >= 0 && c.Y < s.Height
}

// index maps a coordinate to its column-major slot.
func (s BoardSpec) index(c Coordinate) int { return c.X*s.Height + c.Y }

func (s BoardSpec) coordinateAt(i int) Coordinate {
	return Coordinate{X: i / s.Height, Y: i % s.Height}
}

// AddScore adds a non-negative, finite delta to a running total.
func AddScore(total, delta float64) (float64, error) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return total, fmt.Errorf("invalid score delta %v", delta)
	}
	if delta < 0 {
		return total, fmt.Errorf("score delta must not be negative, got %v", delta)
	}
	next := total + delta
	if math.IsInf(next, 0) {
		return total, fmt.Errorf("score overflow adding %v to %v", delta, total)
	}
	return next, nil
}
