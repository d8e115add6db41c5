package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "github.com/ryandem1/minesweeper-async/adapters/memory"
	"github.com/ryandem1/minesweeper-async/core"
)

// recordingPauser records operations and proves no registry lock is held
// while the caller is suspended.
type recordingPauser struct {
	mu  sync.Mutex
	ops []Operation
	reg *Registry
}

func (p *recordingPauser) Pause(_ context.Context, op Operation) {
	done := make(chan struct{})
	go func() {
		p.reg.Len()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		panic("registry lock held during pause")
	}
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
}

func newTestService(t *testing.T, capacity int, policy core.ScoringPolicy) (*Service, *Registry, *recordingPauser) {
	t.Helper()
	reg := NewRegistry(capacity)
	pauser := &recordingPauser{reg: reg}
	svc := NewService(reg, mem.New(), NewEventBus(DispatchSync), policy, Settings{
		DefaultSpec:      core.BoardSpec{Length: 5, Height: 4, Mines: 3},
		EnforceFlagLimit: true,
		Pauser:           pauser,
	})
	return svc, reg, pauser
}

// solve plays a perfect game on the board through the service.
func solve(t *testing.T, svc *Service, reg *Registry, id core.BoardID) {
	t.Helper()
	board, err := reg.Get(id)
	require.NoError(t, err)
	for _, sp := range board.Spaces() {
		if sp.Type == core.Mine {
			_, err = svc.Flag(context.Background(), id, sp.Coordinate())
		} else {
			_, err = svc.Hit(context.Background(), id, sp.Coordinate())
		}
		require.NoError(t, err)
	}
}

func TestServiceCreateUsesDefaultSpec(t *testing.T) {
	svc, _, pauser := newTestService(t, 2, core.StrictPolicy{})
	info, err := svc.CreateBoard(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.BoardSpec{Length: 5, Height: 4, Mines: 3}, info.Settings)
	assert.Equal(t, []Operation{OpCreate}, pauser.ops)

	custom := core.BoardSpec{Length: 3, Height: 3, Mines: 1}
	info, err = svc.CreateBoard(context.Background(), &custom)
	require.NoError(t, err)
	assert.Equal(t, custom, info.Settings)
}

func TestServiceQueries(t *testing.T) {
	svc, reg, _ := newTestService(t, 1, core.StrictPolicy{})
	ctx := context.Background()
	info, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)

	board, err := reg.Get(info.ID)
	require.NoError(t, err)
	for _, sp := range board.Spaces() {
		mine, err := svc.IsMine(ctx, info.ID, sp.Coordinate())
		require.NoError(t, err)
		assert.Equal(t, sp.Type == core.Mine, mine)

		blank, err := svc.IsBlank(ctx, info.ID, sp.Coordinate())
		require.NoError(t, err)
		assert.Equal(t, sp.Type == core.Blank, blank)

		value, err := svc.SpaceValue(ctx, info.ID, sp.Coordinate())
		require.NoError(t, err)
		assert.Equal(t, sp.Value, value)
	}

	_, err = svc.IsMine(ctx, info.ID, core.Coordinate{X: 9, Y: 0})
	assert.ErrorIs(t, err, core.ErrOutOfRange)
	_, err = svc.IsMine(ctx, core.NewBoardID(), core.Coordinate{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestServiceCheckSolvedBoard(t *testing.T) {
	svc, reg, _ := newTestService(t, 1, core.StrictPolicy{})
	ctx := context.Background()

	var checked []core.Event
	svc.Subscribe(core.EventBoardChecked, func(_ context.Context, e core.Event) { checked = append(checked, e) })

	info, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)
	solve(t, svc, reg, info.ID)

	board, err := reg.Get(info.ID)
	require.NoError(t, err)
	want := core.StrictPolicy{}.Score(board.Snapshot())

	res, err := svc.Check(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.InDelta(t, want, res.Score, 1e-9)
	assert.InDelta(t, want, res.Delta, 1e-9)
	assert.InDelta(t, want, res.Total, 1e-9)

	total, err := svc.Score(ctx)
	require.NoError(t, err)
	assert.InDelta(t, want, total, 1e-9)

	require.Len(t, checked, 1)
	assert.Equal(t, info.ID.String(), checked[0].BoardID)

	_, err = svc.Check(ctx, info.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "a board is checked once")

	// eviction frees capacity
	_, err = svc.CreateBoard(ctx, nil)
	assert.NoError(t, err)
}

func TestServiceCheckNeverLowersTotal(t *testing.T) {
	svc, _, _ := newTestService(t, 2, core.StrictPolicy{})
	ctx := context.Background()

	spec := core.BoardSpec{Length: 2, Height: 8, Mines: 15}
	info, err := svc.CreateBoard(ctx, &spec)
	require.NoError(t, err)

	res, err := svc.Check(ctx, info.ID)
	require.NoError(t, err)
	assert.Less(t, res.Score, 0.0)
	assert.Equal(t, 0.0, res.Delta)
	assert.Equal(t, 0.0, res.Total)
}

func TestServiceAccuracyPolicy(t *testing.T) {
	svc, reg, _ := newTestService(t, 1, core.AccuracyPolicy{})
	ctx := context.Background()
	info, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)
	solve(t, svc, reg, info.ID)

	res, err := svc.Check(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PolicyAccuracy, res.Policy)
	assert.Greater(t, res.Total, 0.0)
}

func TestServiceCapacity(t *testing.T) {
	svc, _, _ := newTestService(t, 2, core.StrictPolicy{})
	ctx := context.Background()
	first, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)
	_, err = svc.CreateBoard(ctx, nil)
	require.NoError(t, err)

	_, err = svc.CreateBoard(ctx, nil)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)

	n, capacity := svc.Outstanding()
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, capacity)

	_, err = svc.Check(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.CreateBoard(ctx, nil)
	assert.NoError(t, err)
}

func TestServiceFlagLimitSetting(t *testing.T) {
	reg := NewRegistry(1)
	svc := NewService(reg, mem.New(), NewEventBus(DispatchSync), core.StrictPolicy{}, Settings{
		DefaultSpec: core.BoardSpec{Length: 3, Height: 3, Mines: 1},
	})
	ctx := context.Background()
	info, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)

	for _, c := range []core.Coordinate{{0, 0}, {1, 1}, {2, 2}} {
		sp, err := svc.Flag(ctx, info.ID, c)
		require.NoError(t, err)
		assert.True(t, sp.Flagged)
	}
}

func TestServiceBatchHitAndEvents(t *testing.T) {
	svc, reg, pauser := newTestService(t, 1, core.StrictPolicy{})
	ctx := context.Background()

	var events []core.EventType
	svc.Subscribe("", func(_ context.Context, e core.Event) { events = append(events, e.Type) })

	info, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)
	board, err := reg.Get(info.ID)
	require.NoError(t, err)

	var safe []core.Coordinate
	var mine core.Coordinate
	for _, sp := range board.Spaces() {
		if sp.Type == core.Mine {
			mine = sp.Coordinate()
		} else {
			safe = append(safe, sp.Coordinate())
		}
	}

	_, err = svc.BatchHit(ctx, info.ID, append([]core.Coordinate{safe[0]}, mine))
	assert.ErrorIs(t, err, core.ErrInvalidBatch)

	out, err := svc.BatchHit(ctx, info.ID, safe[:2])
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = svc.Hit(ctx, info.ID, safe[0])
	assert.ErrorIs(t, err, core.ErrAlreadyHit)

	assert.Equal(t, []core.EventType{core.EventBoardCreated, core.EventBatchHit}, events)
	assert.Equal(t, []Operation{OpCreate, OpAction, OpAction, OpAction}, pauser.ops)
}

func TestNewServicePanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewService(nil, mem.New(), NewEventBus(DispatchSync), core.StrictPolicy{}, Settings{}) })
}

// flakyStore fails every Add while down is set.
type flakyStore struct {
	*mem.Store
	down atomic.Bool
}

func (s *flakyStore) Add(ctx context.Context, delta float64) (float64, error) {
	if s.down.Load() {
		return 0, errors.New("store down")
	}
	return s.Store.Add(ctx, delta)
}

func TestServiceCheckKeepsBoardWhenCreditFails(t *testing.T) {
	store := &flakyStore{Store: mem.New()}
	store.down.Store(true)
	reg := NewRegistry(1)
	svc := NewService(reg, store, NewEventBus(DispatchSync), core.StrictPolicy{}, Settings{})
	ctx := context.Background()

	var checked int
	svc.Subscribe(core.EventBoardChecked, func(context.Context, core.Event) { checked++ })

	info, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)

	_, err = svc.Check(ctx, info.ID)
	require.ErrorContains(t, err, "store down")
	assert.Zero(t, checked)

	// the board is still outstanding and playable
	_, err = reg.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	_, err = svc.Flag(ctx, info.ID, core.Coordinate{X: 0, Y: 0})
	require.NoError(t, err)

	store.down.Store(false)
	_, err = svc.Check(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 0, reg.Len())
}

// gateStore blocks Add until release is closed, announcing entry on entered.
type gateStore struct {
	*mem.Store
	entered chan struct{}
	release chan struct{}
}

func (s *gateStore) Add(ctx context.Context, delta float64) (float64, error) {
	close(s.entered)
	<-s.release
	return s.Store.Add(ctx, delta)
}

func TestServiceActionsDuringCheckAreRejected(t *testing.T) {
	store := &gateStore{Store: mem.New(), entered: make(chan struct{}), release: make(chan struct{})}
	reg := NewRegistry(1)
	svc := NewService(reg, store, NewEventBus(DispatchSync), core.StrictPolicy{}, Settings{
		DefaultSpec:      core.BoardSpec{Length: 4, Height: 4, Mines: 2},
		EnforceFlagLimit: true,
	})
	ctx := context.Background()

	var hits int
	svc.Subscribe(core.EventSpaceHit, func(context.Context, core.Event) { hits++ })

	info, err := svc.CreateBoard(ctx, nil)
	require.NoError(t, err)
	board, err := reg.Get(info.ID)
	require.NoError(t, err)
	before := board.Spaces()

	type outcome struct {
		res CheckResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := svc.Check(ctx, info.ID)
		done <- outcome{res, err}
	}()
	<-store.entered

	// the check has taken its snapshot and is crediting the score
	_, err = svc.Hit(ctx, info.ID, core.Coordinate{X: 0, Y: 0})
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.Flag(ctx, info.ID, core.Coordinate{X: 1, Y: 1})
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.BatchHit(ctx, info.ID, []core.Coordinate{{X: 2, Y: 2}})
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.Check(ctx, info.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "only one check runs at a time")

	close(store.release)
	out := <-done
	require.NoError(t, out.err)
	assert.Zero(t, hits)
	assert.Equal(t, before, board.Spaces())

	_, err = reg.Get(info.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestServiceRejectsOversizedBoards(t *testing.T) {
	reg := NewRegistry(1)
	svc := NewService(reg, mem.New(), NewEventBus(DispatchSync), core.StrictPolicy{}, Settings{MaxSpaces: 100})
	ctx := context.Background()

	_, err := svc.CreateBoard(ctx, &core.BoardSpec{Length: 11, Height: 10, Mines: 5})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	_, err = svc.CreateBoard(ctx, &core.BoardSpec{Length: 46340, Height: 46340, Mines: 1})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	assert.Equal(t, 0, reg.Len())

	_, err = svc.CreateBoard(ctx, &core.BoardSpec{Length: 10, Height: 10, Mines: 5})
	assert.NoError(t, err)
}
