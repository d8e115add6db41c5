package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ryandem1/minesweeper-async/core"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)
	if h.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.Subscribers())
	}

	board := core.NewBoardID()
	h.Broadcast(context.Background(), core.NewBoardChecked(board, core.PolicyStrict, 9, 9, 9, true))

	received := <-ch
	if received.BoardID != board.String() || received.Type != core.EventBoardChecked {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestHubSkipsSpaceEvents(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(4)

	board := core.NewBoardID()
	h.Broadcast(context.Background(), core.NewSpaceHit(board, core.Coordinate{X: 1, Y: 2}))
	h.Broadcast(context.Background(), core.NewSpaceFlagged(board, core.Coordinate{X: 1, Y: 2}, true))
	h.Broadcast(context.Background(), core.NewBoardCreated(board, core.DefaultBoardSpec()))

	ev := <-ch
	if ev.Type != core.EventBoardCreated {
		t.Fatalf("expected board_created first, got %s", ev.Type)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected event: %+v", extra)
	default:
	}
}

func TestHubCustomTypes(t *testing.T) {
	h := NewHub(core.EventSpaceHit)
	if !h.Relays(core.EventSpaceHit) || h.Relays(core.EventBoardChecked) {
		t.Fatal("unexpected relay set")
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := core.NewBoardCreated(core.NewBoardID(), core.BoardSpec{Length: 4, Height: 3, Mines: 2})
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Settings == nil || out.Settings.Length != 4 {
		t.Fatalf("unexpected settings: %+v", out.Settings)
	}
}
