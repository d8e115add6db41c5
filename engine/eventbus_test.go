package engine

import (
	"context"
	"testing"
	"time"

	"github.com/ryandem1/minesweeper-async/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventBoardCreated, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewBoardCreated(core.NewBoardID(), core.DefaultBoardSpec()))
	bus.Publish(context.Background(), core.NewSpaceHit(core.NewBoardID(), core.Coordinate{}))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusWildcard(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	unsubscribe := bus.Subscribe("", func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewBoardCreated(core.NewBoardID(), core.DefaultBoardSpec()))
	bus.Publish(context.Background(), core.NewSpaceHit(core.NewBoardID(), core.Coordinate{}))
	unsubscribe()
	bus.Publish(context.Background(), core.NewSpaceHit(core.NewBoardID(), core.Coordinate{}))
	if count != 2 {
		t.Fatalf("want 2 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventBoardChecked, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewBoardChecked(core.NewBoardID(), core.PolicyStrict, 1, 1, 1, false))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}
