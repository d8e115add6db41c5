package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/ryandem1/minesweeper-async/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// Handler adapts a hook to an event bus subscription.
func Handler(h Hook) func(context.Context, core.Event) {
	return func(_ context.Context, e core.Event) { h.OnEvent(e) }
}

// DayStats is the activity recorded for one UTC day.
type DayStats struct {
	BoardsCreated int64   `json:"boards_created"`
	BoardsChecked int64   `json:"boards_checked"`
	Correct       int64   `json:"correct"`
	Credited      float64 `json:"credited"`
}

// Stats is a point-in-time view of GameMetrics.
type Stats struct {
	BoardsCreated int64               `json:"boards_created"`
	BoardsChecked int64               `json:"boards_checked"`
	Correct       int64               `json:"correct"`
	Hits          int64               `json:"hits"`
	BatchHits     int64               `json:"batch_hits"`
	BatchSpaces   int64               `json:"batch_spaces"`
	FlagsRaised   int64               `json:"flags_raised"`
	FlagsLowered  int64               `json:"flags_lowered"`
	Credited      float64             `json:"credited"`
	BestScore     float64             `json:"best_score"`
	WorstScore    float64             `json:"worst_score"`
	ByPolicy      map[string]int64    `json:"checks_by_policy"`
	Days          map[string]DayStats `json:"days,omitempty"`
	Since         time.Time           `json:"since"`
}

// AverageScore is the mean policy score across checked boards.
func (s Stats) AverageScore(sum float64) float64 {
	if s.BoardsChecked == 0 {
		return 0
	}
	return sum / float64(s.BoardsChecked)
}

// GameMetrics counts play across every board the service hands out.
type GameMetrics struct {
	mu sync.RWMutex

	stats    Stats
	scoreSum float64
	days     map[string]*DayStats
}

func NewGameMetrics() *GameMetrics {
	return &GameMetrics{
		stats: Stats{ByPolicy: map[string]int64{}, Since: time.Now().UTC()},
		days:  map[string]*DayStats{},
	}
}

func (gm *GameMetrics) OnEvent(e core.Event) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	day := gm.day(e.Time)
	switch e.Type {
	case core.EventBoardCreated:
		gm.stats.BoardsCreated++
		day.BoardsCreated++
	case core.EventSpaceHit:
		gm.stats.Hits++
	case core.EventBatchHit:
		gm.stats.BatchHits++
		gm.stats.BatchSpaces += int64(len(e.Coordinates))
	case core.EventSpaceFlagged:
		if e.Flagged {
			gm.stats.FlagsRaised++
		} else {
			gm.stats.FlagsLowered++
		}
	case core.EventBoardChecked:
		if gm.stats.BoardsChecked == 0 || e.Score > gm.stats.BestScore {
			gm.stats.BestScore = e.Score
		}
		if gm.stats.BoardsChecked == 0 || e.Score < gm.stats.WorstScore {
			gm.stats.WorstScore = e.Score
		}
		gm.stats.BoardsChecked++
		gm.stats.Credited += e.Delta
		gm.stats.ByPolicy[e.Policy]++
		gm.scoreSum += e.Score
		day.BoardsChecked++
		day.Credited += e.Delta
		if e.Correct {
			gm.stats.Correct++
			day.Correct++
		}
	}
}

func (gm *GameMetrics) day(t time.Time) *DayStats {
	if t.IsZero() {
		t = time.Now()
	}
	key := t.UTC().Format("2006-01-02")
	d := gm.days[key]
	if d == nil {
		d = &DayStats{}
		gm.days[key] = d
	}
	return d
}

// Snapshot returns a copy of the counters.
func (gm *GameMetrics) Snapshot() Stats {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	out := gm.stats
	out.ByPolicy = make(map[string]int64, len(gm.stats.ByPolicy))
	for k, v := range gm.stats.ByPolicy {
		out.ByPolicy[k] = v
	}
	out.Days = make(map[string]DayStats, len(gm.days))
	for k, v := range gm.days {
		out.Days[k] = *v
	}
	return out
}

// AverageScore is the mean policy score of checked boards.
func (gm *GameMetrics) AverageScore() float64 {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.stats.AverageScore(gm.scoreSum)
}

// Day returns the activity for a day formatted as 2006-01-02.
func (gm *GameMetrics) Day(day string) DayStats {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	if d, ok := gm.days[day]; ok {
		return *d
	}
	return DayStats{}
}
