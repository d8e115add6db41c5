// Package oracle assembles a ready-to-use minesweeper oracle service.
package oracle

import (
	"context"
	"log/slog"

	mem "github.com/ryandem1/minesweeper-async/adapters/memory"
	"github.com/ryandem1/minesweeper-async/analytics"
	"github.com/ryandem1/minesweeper-async/core"
	"github.com/ryandem1/minesweeper-async/engine"
	"github.com/ryandem1/minesweeper-async/leaderboard"
	"github.com/ryandem1/minesweeper-async/realtime"
)

// DefaultCapacity is the number of boards that may be outstanding at once.
const DefaultCapacity = 5

// Option configures the oracle builder.
type Option func(*config)

type config struct {
	store     engine.ScoreStore
	policy    core.ScoringPolicy
	capacity  int
	spec      core.BoardSpec
	maxSpaces int
	flagLimit bool
	pauser    engine.Pauser
	mode      engine.DispatchMode
	hub       *realtime.Hub
	ranks     leaderboard.Board
	hooks     []analytics.Hook
	logger    *slog.Logger
}

// WithStore sets the running score persistence adapter.
func WithStore(s engine.ScoreStore) Option { return func(c *config) { c.store = s } }

// WithPolicy sets the scoring policy applied at check time.
func WithPolicy(p core.ScoringPolicy) Option { return func(c *config) { c.policy = p } }

// WithCapacity caps outstanding boards.
func WithCapacity(n int) Option { return func(c *config) { c.capacity = n } }

// WithDefaultSpec sets the board generated when a request names no settings.
func WithDefaultSpec(s core.BoardSpec) Option { return func(c *config) { c.spec = s } }

// WithMaxSpaces caps the area of boards callers may request.
func WithMaxSpaces(n int) Option { return func(c *config) { c.maxSpaces = n } }

// WithFlagLimit toggles the one-flag-per-mine rule.
func WithFlagLimit(on bool) Option { return func(c *config) { c.flagLimit = on } }

// WithPauser injects latency after each operation.
func WithPauser(p engine.Pauser) Option { return func(c *config) { c.pauser = p } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive board lifecycle events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithLeaderboard ranks every checked board.
func WithLeaderboard(b leaderboard.Board) Option { return func(c *config) { c.ranks = b } }

// WithHooks forwards every event to the given hooks.
func WithHooks(hooks ...analytics.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, hooks...) }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// New builds a configured Service. If not provided, defaults are used:
//   - store: in-memory
//   - policy: strict
//   - capacity: DefaultCapacity
//   - board: 9x9 with 10 mines
//   - max area: core.MaxSpaces
//   - flag limit: enforced
//   - dispatch: async
func New(opts ...Option) *engine.Service {
	cfg := &config{
		mode:      engine.DispatchAsync,
		policy:    core.StrictPolicy{},
		capacity:  DefaultCapacity,
		spec:      core.DefaultBoardSpec(),
		flagLimit: true,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.store == nil {
		cfg.store = mem.New()
	}
	if cfg.capacity <= 0 {
		cfg.capacity = DefaultCapacity
	}

	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewService(engine.NewRegistry(cfg.capacity), cfg.store, bus, cfg.policy, engine.Settings{
		DefaultSpec:      cfg.spec,
		MaxSpaces:        cfg.maxSpaces,
		EnforceFlagLimit: cfg.flagLimit,
		Pauser:           cfg.pauser,
		Logger:           cfg.logger,
	})

	if cfg.hub != nil {
		for _, t := range realtime.LifecycleEvents {
			bus.Subscribe(t, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
		}
	}
	if cfg.ranks != nil {
		bus.Subscribe(core.EventBoardChecked, leaderboard.Record(cfg.ranks))
	}
	if len(cfg.hooks) > 0 {
		bus.Subscribe("", analytics.Handler(analytics.NewFanout(cfg.logger, cfg.hooks...)))
	}
	return svc
}
