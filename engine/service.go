package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ryandem1/minesweeper-async/core"
)

// BoardInfo is what a caller learns about a freshly created board.
type BoardInfo struct {
	ID       core.BoardID   `json:"id"`
	Settings core.BoardSpec `json:"settings"`
}

// CheckResult reports the outcome of submitting a board. Score is the policy
// result; Delta is what was credited to the running total.
type CheckResult struct {
	BoardID core.BoardID `json:"board_id"`
	Policy  string       `json:"policy"`
	Score   float64      `json:"raw_score"`
	Delta   float64      `json:"delta"`
	Total   float64      `json:"score"`
	Correct bool         `json:"correct"`
}

// Settings tunes a Service. Zero values fall back to defaults.
type Settings struct {
	DefaultSpec      core.BoardSpec
	MaxSpaces        int // area cap for requested boards; 0 means core.MaxSpaces
	EnforceFlagLimit bool
	Pauser           Pauser
	Logger           *slog.Logger
}

// Service wires registry, scoring, score storage and events into the oracle API.
// Artificial latency is applied after each operation returns its result and
// no lock is held.
type Service struct {
	registry  *Registry
	store     ScoreStore
	bus       *EventBus
	policy    core.ScoringPolicy
	spec      core.BoardSpec
	maxSpaces int
	flagLimit bool
	pauser    Pauser
	log       *slog.Logger
}

func NewService(registry *Registry, store ScoreStore, bus *EventBus, policy core.ScoringPolicy, settings Settings) *Service {
	if registry == nil || store == nil || bus == nil || policy == nil {
		panic("NewService requires non-nil registry, store, bus, and policy")
	}
	s := &Service{
		registry:  registry,
		store:     store,
		bus:       bus,
		policy:    policy,
		spec:      settings.DefaultSpec,
		maxSpaces: settings.MaxSpaces,
		flagLimit: settings.EnforceFlagLimit,
		pauser:    settings.Pauser,
		log:       settings.Logger,
	}
	if s.spec == (core.BoardSpec{}) {
		s.spec = core.DefaultBoardSpec()
	}
	if s.pauser == nil {
		s.pauser = noPause{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *Service) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// Policy is the scoring policy applied at check time.
func (s *Service) Policy() string { return s.policy.Name() }

// DefaultSpec is used when a create request carries no spec.
func (s *Service) DefaultSpec() core.BoardSpec { return s.spec }

// CreateBoard generates and registers a board. A nil spec uses the default.
func (s *Service) CreateBoard(ctx context.Context, spec *core.BoardSpec) (BoardInfo, error) {
	defer s.pauser.Pause(ctx, OpCreate)

	use := s.spec
	if spec != nil {
		use = *spec
	}
	if err := use.ValidateWithin(s.maxSpaces); err != nil {
		return BoardInfo{}, err
	}
	board, err := s.registry.Create(use)
	if err != nil {
		return BoardInfo{}, err
	}
	s.log.Debug("board created", "board_id", board.ID, "length", use.Length, "height", use.Height, "mines", use.Mines)
	s.bus.Publish(ctx, core.NewBoardCreated(board.ID, board.Spec))
	return BoardInfo{ID: board.ID, Settings: board.Spec}, nil
}

// Score returns the running total.
func (s *Service) Score(ctx context.Context) (float64, error) {
	return s.store.Total(ctx)
}

// Space returns the current state of one space.
func (s *Service) Space(ctx context.Context, id core.BoardID, c core.Coordinate) (core.BoardSpace, error) {
	defer s.pauser.Pause(ctx, OpQuery)
	board, err := s.registry.Get(id)
	if err != nil {
		return core.BoardSpace{}, err
	}
	return board.Lookup(c.X, c.Y)
}

// IsMine reports whether the space at c is a mine.
func (s *Service) IsMine(ctx context.Context, id core.BoardID, c core.Coordinate) (bool, error) {
	sp, err := s.Space(ctx, id, c)
	return sp.Type == core.Mine, err
}

// IsBlank reports whether the space at c has no adjacent mines and is not a mine.
func (s *Service) IsBlank(ctx context.Context, id core.BoardID, c core.Coordinate) (bool, error) {
	sp, err := s.Space(ctx, id, c)
	return sp.Type == core.Blank, err
}

// SpaceValue returns the adjacency value at c (mines report their nominal value).
func (s *Service) SpaceValue(ctx context.Context, id core.BoardID, c core.Coordinate) (int, error) {
	sp, err := s.Space(ctx, id, c)
	return sp.Value, err
}

// Hit hits one space.
func (s *Service) Hit(ctx context.Context, id core.BoardID, c core.Coordinate) (core.BoardSpace, error) {
	defer s.pauser.Pause(ctx, OpAction)
	board, err := s.registry.Get(id)
	if err != nil {
		return core.BoardSpace{}, err
	}
	sp, err := board.Hit(c)
	if err != nil {
		return core.BoardSpace{}, err
	}
	s.bus.Publish(ctx, core.NewSpaceHit(id, c))
	return sp, nil
}

// BatchHit hits every coordinate or none.
func (s *Service) BatchHit(ctx context.Context, id core.BoardID, cs []core.Coordinate) ([]core.BoardSpace, error) {
	defer s.pauser.Pause(ctx, OpAction)
	board, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	out, err := board.BatchHit(cs)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, core.NewBatchHit(id, cs))
	return out, nil
}

// Flag toggles the flag on one space.
func (s *Service) Flag(ctx context.Context, id core.BoardID, c core.Coordinate) (core.BoardSpace, error) {
	defer s.pauser.Pause(ctx, OpAction)
	board, err := s.registry.Get(id)
	if err != nil {
		return core.BoardSpace{}, err
	}
	var sp core.BoardSpace
	if s.flagLimit {
		sp, err = board.Flag(c)
	} else {
		sp, err = board.FlagUnlimited(c)
	}
	if err != nil {
		return core.BoardSpace{}, err
	}
	s.bus.Publish(ctx, core.NewSpaceFlagged(id, c, sp.Flagged))
	return sp, nil
}

// Check retires the board, scores it, credits the running total and only
// then evicts it. Actions racing the check fail with core.ErrNotFound rather
// than touching a board that is already scored. If crediting fails the board
// is reinstated and can be checked again. A board can be checked once; later
// checks fail with core.ErrNotFound. Negative policy scores are reported but
// credit nothing, keeping the total non-decreasing.
func (s *Service) Check(ctx context.Context, id core.BoardID) (CheckResult, error) {
	defer s.pauser.Pause(ctx, OpCheck)
	board, err := s.registry.Get(id)
	if err != nil {
		return CheckResult{}, err
	}
	snap, err := board.Retire()
	if err != nil {
		return CheckResult{}, err
	}

	score := s.policy.Score(snap)
	delta := math.Max(score, 0)
	total, err := s.store.Add(ctx, delta)
	if err != nil {
		board.Reinstate()
		s.log.Error("failed to credit score", "board_id", id, "delta", delta, "error", err)
		return CheckResult{}, fmt.Errorf("credit score for board %s: %w", id, err)
	}
	if _, err := s.registry.Remove(id); err != nil {
		return CheckResult{}, err
	}

	res := CheckResult{
		BoardID: id,
		Policy:  s.policy.Name(),
		Score:   score,
		Delta:   delta,
		Total:   total,
		Correct: snap.IsCorrect(),
	}
	s.log.Info("board checked", "board_id", id, "policy", res.Policy, "score", score, "total", total, "correct", res.Correct)
	s.bus.Publish(ctx, core.NewBoardChecked(id, res.Policy, score, delta, total, res.Correct))
	return res, nil
}

// Boards lists the outstanding boards.
func (s *Service) Boards(ctx context.Context) []BoardInfo {
	defer s.pauser.Pause(ctx, OpQuery)
	boards := s.registry.List()
	out := make([]BoardInfo, len(boards))
	for i, b := range boards {
		out[i] = BoardInfo{ID: b.ID, Settings: b.Spec}
	}
	return out
}

// Outstanding reports how many boards are checked out and the ceiling.
func (s *Service) Outstanding() (int, int) {
	return s.registry.Len(), s.registry.Capacity()
}

func (s *Service) Close() { s.bus.Close() }
