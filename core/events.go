package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventBoardCreated EventType = "board_created"
	EventSpaceHit     EventType = "space_hit"
	EventSpaceFlagged EventType = "space_flagged"
	EventBatchHit     EventType = "batch_hit"
	EventBoardChecked EventType = "board_checked"
)

// Event represents an immutable domain event.
type Event struct {
	Type        EventType      `json:"type"`
	Time        time.Time      `json:"time"`
	BoardID     string         `json:"board_id"`
	Settings    *BoardSpec     `json:"settings,omitempty"`
	Coordinates []Coordinate   `json:"coordinates,omitempty"`
	Flagged     bool           `json:"flagged,omitempty"`
	Policy      string         `json:"policy,omitempty"`
	Score       float64        `json:"score"`
	Delta       float64        `json:"delta"`
	Total       float64        `json:"total"`
	Correct     bool           `json:"correct,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBoardCreated(id BoardID, spec BoardSpec) Event {
	return Event{Type: EventBoardCreated, Time: time.Now().UTC(), BoardID: id.String(), Settings: &spec}
}

func NewSpaceHit(id BoardID, c Coordinate) Event {
	return Event{Type: EventSpaceHit, Time: time.Now().UTC(), BoardID: id.String(), Coordinates: []Coordinate{c}}
}

func NewSpaceFlagged(id BoardID, c Coordinate, flagged bool) Event {
	return Event{Type: EventSpaceFlagged, Time: time.Now().UTC(), BoardID: id.String(), Coordinates: []Coordinate{c}, Flagged: flagged}
}

func NewBatchHit(id BoardID, cs []Coordinate) Event {
	return Event{Type: EventBatchHit, Time: time.Now().UTC(), BoardID: id.String(), Coordinates: append([]Coordinate(nil), cs...)}
}

// NewBoardChecked records a scored board: score is the policy result, delta
// the amount credited to the running total.
func NewBoardChecked(id BoardID, policy string, score, delta, total float64, correct bool) Event {
	return Event{
		Type:    EventBoardChecked,
		Time:    time.Now().UTC(),
		BoardID: id.String(),
		Policy:  policy,
		Score:   score,
		Delta:   delta,
		Total:   total,
		Correct: correct,
	}
}
