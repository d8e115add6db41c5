package analytics

import (
	"fmt"
	"log/slog"

	"github.com/ryandem1/minesweeper-async/core"
)

// Fanout forwards each event to every hook in order. A hook that panics is
// logged and skipped so the remaining hooks still see the event.
type Fanout struct {
	hooks []Hook
	log   *slog.Logger
}

// NewFanout drops nil hooks. A nil logger uses slog.Default().
func NewFanout(log *slog.Logger, hooks ...Hook) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	f := &Fanout{log: log}
	for _, h := range hooks {
		if h != nil {
			f.hooks = append(f.hooks, h)
		}
	}
	return f
}

// Len is the number of attached hooks.
func (f *Fanout) Len() int { return len(f.hooks) }

func (f *Fanout) OnEvent(e core.Event) {
	for _, h := range f.hooks {
		f.deliver(h, e)
	}
}

func (f *Fanout) deliver(h Hook, e core.Event) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("analytics hook panicked", "hook", fmt.Sprintf("%T", h), "event", e.Type, "board_id", e.BoardID, "panic", r)
		}
	}()
	h.OnEvent(e)
}
