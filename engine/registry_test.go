package engine

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryandem1/minesweeper-async/core"
)

func TestRegistryCapacity(t *testing.T) {
	reg := NewRegistry(3)
	spec := core.DefaultBoardSpec()

	var ids []core.BoardID
	for range 3 {
		b, err := reg.Create(spec)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	_, err := reg.Create(spec)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Equal(t, 3, reg.Len())

	_, err = reg.Remove(ids[0])
	require.NoError(t, err)
	_, err = reg.Create(spec)
	assert.NoError(t, err)
}

func TestRegistryGetRemove(t *testing.T) {
	reg := NewRegistry(2)
	b, err := reg.Create(core.BoardSpec{Length: 4, Height: 4, Mines: 3})
	require.NoError(t, err)

	got, err := reg.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)

	removed, err := reg.Remove(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, removed)

	_, err = reg.Get(b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = reg.Remove(b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry(3)
	assert.Empty(t, reg.List())
	for range 3 {
		_, err := reg.Create(core.BoardSpec{Length: 2, Height: 2, Mines: 1})
		require.NoError(t, err)
	}
	list := reg.List()
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.Negative(t, bytes.Compare(list[i-1].ID[:], list[i].ID[:]))
	}
}

func TestRegistryRejectsInvalidSpec(t *testing.T) {
	reg := NewRegistry(1)
	_, err := reg.Create(core.BoardSpec{Length: 2, Height: 2, Mines: 4})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	assert.Equal(t, 0, reg.Len())

	// the failed create released its slot
	_, err = reg.Create(core.DefaultBoardSpec())
	assert.NoError(t, err)
}

func TestRegistryReservesSlotBeforeGenerating(t *testing.T) {
	reg := NewRegistry(1)
	var nested error
	reg.newID = func() core.BoardID {
		// a second create while the first is still generating finds no slot
		_, nested = reg.Create(core.DefaultBoardSpec())
		return core.NewBoardID()
	}

	_, err := reg.Create(core.DefaultBoardSpec())
	require.NoError(t, err)
	assert.ErrorIs(t, nested, core.ErrCapacityExceeded)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryAtCapacitySkipsGeneration(t *testing.T) {
	reg := NewRegistry(1)
	_, err := reg.Create(core.DefaultBoardSpec())
	require.NoError(t, err)

	var generated atomic.Int32
	reg.newID = func() core.BoardID {
		generated.Add(1)
		return core.NewBoardID()
	}
	_, err = reg.Create(core.DefaultBoardSpec())
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Zero(t, generated.Load())
}

func TestRegistryReproducesLayoutForID(t *testing.T) {
	id := core.NewBoardID()
	reg := NewRegistry(1)
	reg.newID = func() core.BoardID { return id }

	spec := core.BoardSpec{Length: 8, Height: 8, Mines: 12}
	b, err := reg.Create(spec)
	require.NoError(t, err)

	want, err := core.Generate(id, spec)
	require.NoError(t, err)
	assert.Equal(t, want.Spaces(), b.Spaces())
}

func TestRegistryConcurrentCreatesNeverExceedCapacity(t *testing.T) {
	const capacity = 5
	for range 20 {
		reg := NewRegistry(capacity)

		var (
			wg       sync.WaitGroup
			admitted atomic.Int32
			rejected atomic.Int32
		)
		start := make(chan struct{})
		for range 64 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := reg.Create(core.BoardSpec{Length: 4, Height: 4, Mines: 2})
				switch {
				case err == nil:
					admitted.Add(1)
				case errors.Is(err, core.ErrCapacityExceeded):
					rejected.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
				if n := reg.Len(); n > capacity {
					t.Errorf("registry holds %d boards, capacity %d", n, capacity)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(capacity), admitted.Load())
		assert.Equal(t, int32(64-capacity), rejected.Load())
		assert.Equal(t, capacity, reg.Len())
	}
}

func TestRegistryConcurrentRemoveAndGet(t *testing.T) {
	reg := NewRegistry(1)
	b, err := reg.Create(core.BoardSpec{Length: 3, Height: 3, Mines: 1})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		removed atomic.Int32
	)
	for range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := reg.Remove(b.ID); err == nil {
				removed.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if got, err := reg.Get(b.ID); err == nil && got != b {
				t.Errorf("got a different board")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), removed.Load())
}

func TestNewRegistryPanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { NewRegistry(0) })
}
