package leaderboard

import (
	"context"

	"github.com/ryandem1/minesweeper-async/core"
)

// Entry is one scored board.
type Entry struct {
	BoardID string  `json:"board_id"`
	Score   float64 `json:"score"`
	Correct bool    `json:"correct"`
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(e Entry)
	Remove(boardID string)
	TopN(n int) []Entry
	Get(boardID string) (Entry, bool)
	Len() int
}

// Record is an event handler that ranks checked boards by their policy score.
// Other event types are ignored.
func Record(b Board) func(context.Context, core.Event) {
	return func(_ context.Context, ev core.Event) {
		if ev.Type != core.EventBoardChecked {
			return
		}
		b.Update(Entry{BoardID: ev.BoardID, Score: ev.Score, Correct: ev.Correct})
	}
}
