package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ryandem1/minesweeper-async/core"
)

// Sink posts domain events to configured HTTP endpoints.
// It is synchronous for determinism; run it behind an async event bus to keep
// request latency unaffected.
type Sink struct {
	client    *http.Client
	endpoints []string
	types     map[core.EventType]struct{}
	log       *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.client = &http.Client{Timeout: d}
		}
	}
}

// WithEventTypes restricts delivery to the given types. Without it only
// board_checked events are posted.
func WithEventTypes(types ...core.EventType) Option {
	return func(s *Sink) {
		s.types = make(map[core.EventType]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		types:  map[core.EventType]struct{}{core.EventBoardChecked: {}},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// OnEvent posts the event JSON to all endpoints. Failures are logged and
// otherwise ignored.
func (s *Sink) OnEvent(e core.Event) {
	s.Deliver(context.Background(), e)
}

// Deliver posts e to every endpoint and returns how many accepted it.
func (s *Sink) Deliver(ctx context.Context, e core.Event) int {
	if len(s.endpoints) == 0 {
		return 0
	}
	if _, ok := s.types[e.Type]; !ok {
		return 0
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.log.Error("webhook marshal failed", "event", e.Type, "error", err)
		return 0
	}
	delivered := 0
	for _, ep := range s.endpoints {
		if err := s.post(ctx, ep, body); err != nil {
			s.log.Warn("webhook delivery failed", "endpoint", ep, "event", e.Type, "board_id", e.BoardID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (s *Sink) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
