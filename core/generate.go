package core

// Generate builds the board for id. The mine layout is drawn from a PCG
// source seeded with the identifier, so the same id and spec always produce
// the same board.
func Generate(id BoardID, spec BoardSpec) (*Board, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return NewBoard(id, spec, placeMines(id, spec))
}

// placeMines picks spec.Mines distinct coordinates uniformly without
// replacement using a partial Fisher-Yates draw.
func placeMines(id BoardID, spec BoardSpec) []Coordinate {
	r := seededRand(id)

	candidates := make([]int, spec.Size())
	for i := range candidates {
		candidates[i] = i
	}

	mines := make([]Coordinate, 0, spec.Mines)
	k := len(candidates)
	for range spec.Mines {
		i := r.IntN(k)
		mines = append(mines, spec.coordinateAt(candidates[i]))
		k--
		candidates[i] = candidates[k]
	}
	return mines
}
