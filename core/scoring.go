package core

import (
	"fmt"
	"math"
	"sort"
)

// ScoringPolicy turns a submitted board into a score.
type ScoringPolicy interface {
	Name() string
	Score(s Snapshot) float64
}

const (
	PolicyStrict   = "strict"
	PolicyAccuracy = "accuracy"
)

// fullClearBonus multiplies a strict score when the board is solved exactly.
const fullClearBonus = 1.25

var policies = map[string]ScoringPolicy{
	PolicyStrict:   StrictPolicy{},
	PolicyAccuracy: AccuracyPolicy{},
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (ScoringPolicy, error) {
	if p, ok := policies[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownPolicy, name, PolicyNames())
}

// PolicyNames lists the registered policies in sorted order.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for n := range policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StrictPolicy rewards hit values and correctly flagged mines, and charges
// for flagged value spaces and missed mines. A full clear earns a 25% bonus.
type StrictPolicy struct{}

func (StrictPolicy) Name() string { return PolicyStrict }

func (StrictPolicy) Score(s Snapshot) float64 {
	score := float64(s.Spec.Length + s.Spec.Height)
	for _, sp := range s.Spaces() {
		switch sp.Type {
		case Value:
			if sp.Hit {
				score += float64(sp.Value)
			}
			if sp.Flagged {
				score -= float64(sp.Value)
			}
		case Mine:
			weight := roundedNeighborMean(s, sp) * 2
			if sp.Flagged {
				score += weight
			} else {
				score -= weight
			}
		}
	}
	if s.IsCorrect() {
		score *= fullClearBonus
	}
	return score
}

// AccuracyPolicy scales the flat bonus plus hit values by the fraction of
// mines that were flagged. Flags on safe spaces cost nothing.
type AccuracyPolicy struct{}

func (AccuracyPolicy) Name() string { return PolicyAccuracy }

func (AccuracyPolicy) Score(s Snapshot) float64 {
	base := float64(s.Spec.Length + s.Spec.Height)
	flaggedMines := 0
	for _, sp := range s.Spaces() {
		switch {
		case sp.Type == Value && sp.Hit:
			base += float64(sp.Value)
		case sp.Type == Mine && sp.Flagged:
			flaggedMines++
		}
	}
	return base * float64(flaggedMines) / float64(s.Spec.Mines)
}

// roundedNeighborMean averages the values around sp, rounding half to even.
func roundedNeighborMean(s Snapshot, sp BoardSpace) float64 {
	ns, err := s.Neighbors(sp.Coordinate())
	if err != nil || len(ns) == 0 {
		return 0
	}
	sum := 0
	for _, n := range ns {
		sum += n.Value
	}
	return math.RoundToEven(float64(sum) / float64(len(ns)))
}
