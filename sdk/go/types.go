package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ryandem1/minesweeper-async/analytics"
	"github.com/ryandem1/minesweeper-async/core"
)

// BoardSettings are the dimensions of a board.
type BoardSettings struct {
	Length int `json:"length"`
	Height int `json:"height"`
	Mines  int `json:"mines"`
}

// Board identifies a freshly created board.
type Board struct {
	ID       core.BoardID  `json:"id"`
	Settings BoardSettings `json:"settings"`
}

// Coordinate addresses a space.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SpaceState is the state of a space after a hit or flag.
type SpaceState struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Hit     bool `json:"hit"`
	Flagged bool `json:"flagged"`
}

// CheckResult is the outcome of submitting a board.
type CheckResult struct {
	BoardID  core.BoardID `json:"board_id"`
	Policy   string       `json:"policy"`
	RawScore float64      `json:"raw_score"`
	Delta    float64      `json:"delta"`
	Score    float64      `json:"score"`
	Correct  bool         `json:"correct"`
}

// BoardList describes outstanding boards.
type BoardList struct {
	Outstanding int     `json:"outstanding"`
	Capacity    int     `json:"capacity"`
	Boards      []Board `json:"boards"`
}

// LeaderboardEntry is one ranked board.
type LeaderboardEntry struct {
	BoardID string  `json:"board_id"`
	Score   float64 `json:"score"`
	Correct bool    `json:"correct"`
}

// Stats describes the /stats response.
type Stats struct {
	Events       analytics.Stats `json:"events"`
	AverageScore float64         `json:"average_score"`
	Outstanding  int             `json:"outstanding"`
	Capacity     int             `json:"capacity"`
	Policy       string          `json:"policy"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status      string         `json:"status"`
	Checks      map[string]any `json:"checks"`
	Outstanding int            `json:"outstanding"`
	Capacity    int            `json:"capacity"`
}

// APIError is a non-2xx response. It unwraps to the matching core error, so
// errors.Is(err, core.ErrAlreadyHit) works across the wire.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.Status)
	}
	return fmt.Sprintf("request failed: status %d: %s: %s", e.Status, e.Code, e.Message)
}

var codeErrors = map[string]error{
	"invalid_configuration": core.ErrInvalidConfiguration,
	"out_of_range":          core.ErrOutOfRange,
	"not_found":             core.ErrNotFound,
	"already_hit":           core.ErrAlreadyHit,
	"flag_limit_exceeded":   core.ErrFlagLimitExceeded,
	"invalid_batch":         core.ErrInvalidBatch,
	"capacity_exceeded":     core.ErrCapacityExceeded,
}

func (e *APIError) Unwrap() error { return codeErrors[e.Code] }

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyBoardID is returned when a board id is missing.
var ErrEmptyBoardID = errors.New("board id is required")
