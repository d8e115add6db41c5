package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "github.com/ryandem1/minesweeper-async/adapters/memory"
	"github.com/ryandem1/minesweeper-async/analytics"
	"github.com/ryandem1/minesweeper-async/core"
	"github.com/ryandem1/minesweeper-async/engine"
	"github.com/ryandem1/minesweeper-async/leaderboard"
	"github.com/ryandem1/minesweeper-async/realtime"
)

func TestNewDefaults(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync))
	defer svc.Close()

	assert.Equal(t, core.PolicyStrict, svc.Policy())
	assert.Equal(t, core.DefaultBoardSpec(), svc.DefaultSpec())
	n, capacity := svc.Outstanding()
	assert.Equal(t, 0, n)
	assert.Equal(t, DefaultCapacity, capacity)

	total, err := svc.Score(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestNewOptions(t *testing.T) {
	store := mem.New()
	spec := core.BoardSpec{Length: 3, Height: 2, Mines: 1}
	svc := New(
		WithStore(store),
		WithPolicy(core.AccuracyPolicy{}),
		WithCapacity(1),
		WithDefaultSpec(spec),
		WithFlagLimit(false),
		WithDispatchMode(engine.DispatchSync),
	)
	defer svc.Close()

	ctx := context.Background()
	info, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, spec, info.Settings)

	_, err = svc.CreateBoard(ctx, nil)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)

	// unlimited flags: every space of the board can be flagged
	for x := range spec.Length {
		for y := range spec.Height {
			_, err := svc.Flag(ctx, info.ID, core.Coordinate{X: x, Y: y})
			require.NoError(t, err)
		}
	}

	res, err := svc.Check(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PolicyAccuracy, res.Policy)
	assert.Equal(t, int64(1), store.Checks())
}

func TestBridgesEvents(t *testing.T) {
	hub := realtime.NewHub()
	ranks := leaderboard.NewSkipList(10)
	metrics := analytics.NewGameMetrics()

	svc := New(
		WithRealtime(hub),
		WithLeaderboard(ranks),
		WithHooks(metrics),
		WithDispatchMode(engine.DispatchSync),
	)
	defer svc.Close()

	_, ch := hub.Subscribe(8)
	ctx := context.Background()

	info, err := svc.CreateBoard(ctx, &core.BoardSpec{Length: 2, Height: 2, Mines: 1})
	require.NoError(t, err)
	_, _ = svc.Hit(ctx, info.ID, core.Coordinate{X: 0, Y: 0})
	res, err := svc.Check(ctx, info.ID)
	require.NoError(t, err)

	created := <-ch
	assert.Equal(t, core.EventBoardCreated, created.Type)
	checked := <-ch
	assert.Equal(t, core.EventBoardChecked, checked.Type)
	select {
	case extra := <-ch:
		t.Fatalf("space events must not reach the hub: %+v", extra)
	default:
	}

	entry, ok := ranks.Get(info.ID.String())
	require.True(t, ok)
	assert.Equal(t, res.Score, entry.Score)

	stats := metrics.Snapshot()
	assert.Equal(t, int64(1), stats.BoardsCreated)
	assert.Equal(t, int64(1), stats.BoardsChecked)
	assert.Equal(t, int64(1), stats.Hits)
}

type slowPauser struct{ calls int }

func (p *slowPauser) Pause(context.Context, engine.Operation) { p.calls++ }

func TestWithPauser(t *testing.T) {
	p := &slowPauser{}
	svc := New(WithPauser(p), WithDispatchMode(engine.DispatchSync))
	defer svc.Close()

	start := time.Now()
	_, err := svc.CreateBoard(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Less(t, time.Since(start), time.Second)
}
