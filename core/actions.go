package core

import "fmt"

// Hit marks the space at c as hit. A flagged space loses its flag. Hitting a
// mine is allowed; it only counts against the player at check time.
func (b *Board) Hit(c Coordinate) (BoardSpace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, err := b.slot(c)
	if err != nil {
		return BoardSpace{}, err
	}
	sp := &b.spaces[i]
	if sp.Hit {
		return *sp, fmt.Errorf("%w: %s", ErrAlreadyHit, c)
	}
	b.applyHit(sp)
	return *sp, nil
}

// Flag toggles the flag on c. Raising a flag fails once as many flags are up
// as the board has mines.
func (b *Board) Flag(c Coordinate) (BoardSpace, error) { return b.toggleFlag(c, true) }

// FlagUnlimited toggles the flag on c without enforcing the flag limit.
func (b *Board) FlagUnlimited(c Coordinate) (BoardSpace, error) { return b.toggleFlag(c, false) }

func (b *Board) toggleFlag(c Coordinate, limit bool) (BoardSpace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, err := b.slot(c)
	if err != nil {
		return BoardSpace{}, err
	}
	sp := &b.spaces[i]
	if sp.Hit {
		return *sp, fmt.Errorf("%w: cannot flag %s", ErrAlreadyHit, c)
	}
	if sp.Flagged {
		sp.Flagged = false
		b.flagged--
		return *sp, nil
	}
	if limit && b.flagged >= b.Spec.Mines {
		return *sp, fmt.Errorf("%w: %d of %d flags in use", ErrFlagLimitExceeded, b.flagged, b.Spec.Mines)
	}
	sp.Flagged = true
	b.flagged++
	return *sp, nil
}

// BatchHit hits every coordinate in cs or none of them. The batch is
// rejected if it is empty, repeats a coordinate, or targets a mine or an
// already hit space.
func (b *Board) BatchHit(cs []Coordinate) ([]BoardSpace, error) {
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidBatch)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	slots := make([]int, len(cs))
	seen := make(map[int]struct{}, len(cs))
	for n, c := range cs {
		i, err := b.slot(c)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[i]; dup {
			return nil, fmt.Errorf("%w: %s appears twice", ErrInvalidBatch, c)
		}
		seen[i] = struct{}{}
		sp := b.spaces[i]
		if sp.Type == Mine {
			return nil, fmt.Errorf("%w: %s is a mine", ErrInvalidBatch, c)
		}
		if sp.Hit {
			return nil, fmt.Errorf("%w: %s already hit", ErrInvalidBatch, c)
		}
		slots[n] = i
	}

	out := make([]BoardSpace, len(slots))
	for n, i := range slots {
		b.applyHit(&b.spaces[i])
		out[n] = b.spaces[i]
	}
	return out, nil
}

func (b *Board) applyHit(sp *BoardSpace) {
	if sp.Flagged {
		sp.Flagged = false
		b.flagged--
	}
	sp.Hit = true
}
