package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	wsadapter "github.com/ryandem1/minesweeper-async/adapters/websocket"
	"github.com/ryandem1/minesweeper-async/analytics"
	"github.com/ryandem1/minesweeper-async/core"
	"github.com/ryandem1/minesweeper-async/engine"
	"github.com/ryandem1/minesweeper-async/leaderboard"
	"github.com/ryandem1/minesweeper-async/realtime"
)

const maxBodyBytes = 1 << 20

// StatsSource exposes aggregated play counters.
type StatsSource interface {
	Snapshot() analytics.Stats
	AverageScore() float64
}

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client address.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RateLimitCleanup is how long an idle client bucket is kept.
	RateLimitCleanup time.Duration
	// Leaderboard, if set, is served at /leaderboard.
	Leaderboard leaderboard.Board
	// Stats, if set, is served at /stats.
	Stats StatsSource
	// Logger receives internal errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewMux builds an http.Handler exposing the oracle REST API and WebSocket stream.
// Routes:
//   - POST {prefix}/board
//   - GET  {prefix}/score
//   - GET  {prefix}/is_space_a_mine?board_id=&x=&y=
//   - GET  {prefix}/is_space_blank?board_id=&x=&y=
//   - GET  {prefix}/space_value?board_id=&x=&y=
//   - POST {prefix}/hit?board_id=&x=&y=
//   - POST {prefix}/batch_hit?board_id=
//   - POST {prefix}/flag?board_id=&x=&y=
//   - POST {prefix}/check?board_id=
//   - GET  {prefix}/boards
//   - GET  {prefix}/leaderboard?n=10
//   - GET  {prefix}/stats
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(svc *engine.Service, hub *realtime.Hub, opts Options) http.Handler {
	a := &api{svc: svc, opts: opts, log: opts.Logger}
	if a.log == nil {
		a.log = slog.Default()
	}

	mux := http.NewServeMux()
	route := func(method, path string, h http.HandlerFunc) {
		mux.HandleFunc(method+" "+withPrefix(opts.PathPrefix, path), h)
	}

	route(http.MethodGet, "/healthz", a.healthCheck)
	route(http.MethodPost, "/board", a.createBoard)
	route(http.MethodGet, "/score", a.score)
	route(http.MethodGet, "/is_space_a_mine", a.query(func(sp core.BoardSpace) any { return sp.Type == core.Mine }))
	route(http.MethodGet, "/is_space_blank", a.query(func(sp core.BoardSpace) any { return sp.Type == core.Blank }))
	route(http.MethodGet, "/space_value", a.query(func(sp core.BoardSpace) any { return sp.Value }))
	route(http.MethodPost, "/hit", a.hit)
	route(http.MethodPost, "/batch_hit", a.batchHit)
	route(http.MethodPost, "/flag", a.flag)
	route(http.MethodPost, "/check", a.check)
	route(http.MethodGet, "/boards", a.boards)
	if opts.Leaderboard != nil {
		route(http.MethodGet, "/leaderboard", a.leaderboard)
	}
	if opts.Stats != nil {
		route(http.MethodGet, "/stats", a.stats)
	}

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst, opts.RateLimitCleanup)
	}
	return handler
}

type api struct {
	svc  *engine.Service
	opts Options
	log  *slog.Logger
}

// SpaceState is what callers learn about a space after acting on it.
type SpaceState struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Hit     bool `json:"hit"`
	Flagged bool `json:"flagged"`
}

func stateOf(sp core.BoardSpace) SpaceState {
	return SpaceState{X: sp.X, Y: sp.Y, Hit: sp.Hit, Flagged: sp.Flagged}
}

func (a *api) createBoard(w http.ResponseWriter, r *http.Request) {
	var spec *core.BoardSpec
	var body core.BoardSpec
	switch err := decodeBody(w, r, &body); {
	case errors.Is(err, io.EOF):
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_request", "board settings must be a JSON object", nil)
		return
	default:
		spec = &body
	}
	info, err := a.svc.CreateBoard(r.Context(), spec)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, info)
}

func (a *api) score(w http.ResponseWriter, r *http.Request) {
	total, err := a.svc.Score(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"score": total})
}

// query answers a read-only question about one space.
func (a *api) query(answer func(core.BoardSpace) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, c, ok := boardAndCoordinate(w, r)
		if !ok {
			return
		}
		sp, err := a.svc.Space(r.Context(), id, c)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"answer": answer(sp)})
	}
}

func (a *api) hit(w http.ResponseWriter, r *http.Request) {
	id, c, ok := boardAndCoordinate(w, r)
	if !ok {
		return
	}
	sp, err := a.svc.Hit(r.Context(), id, c)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, stateOf(sp))
}

func (a *api) flag(w http.ResponseWriter, r *http.Request) {
	id, c, ok := boardAndCoordinate(w, r)
	if !ok {
		return
	}
	sp, err := a.svc.Flag(r.Context(), id, c)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, stateOf(sp))
}

func (a *api) batchHit(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(w, r)
	if !ok {
		return
	}
	var cs []core.Coordinate
	if err := decodeBody(w, r, &cs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON array of coordinates", nil)
		return
	}
	spaces, err := a.svc.BatchHit(r.Context(), id, cs)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	out := make([]SpaceState, len(spaces))
	for i, sp := range spaces {
		out[i] = stateOf(sp)
	}
	writeJSON(w, out)
}

func (a *api) check(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(w, r)
	if !ok {
		return
	}
	res, err := a.svc.Check(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, res)
}

func (a *api) boards(w http.ResponseWriter, r *http.Request) {
	boards := a.svc.Boards(r.Context())
	_, capacity := a.svc.Outstanding()
	writeJSON(w, map[string]any{
		"outstanding": len(boards),
		"capacity":    capacity,
		"boards":      boards,
	})
}

func (a *api) leaderboard(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "n must be a positive integer", nil)
			return
		}
		n = v
	}
	entries := a.opts.Leaderboard.TopN(n)
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(w, map[string]any{"entries": entries})
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	n, capacity := a.svc.Outstanding()
	writeJSON(w, map[string]any{
		"events":        a.opts.Stats.Snapshot(),
		"average_score": a.opts.Stats.AverageScore(),
		"outstanding":   n,
		"capacity":      capacity,
		"policy":        a.svc.Policy(),
	})
}

// healthCheck verifies the score store answers.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	_, err := a.svc.Score(r.Context())
	n, capacity := a.svc.Outstanding()

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
		"outstanding": n,
		"capacity":    capacity,
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		a.log.Warn("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(status)
}

// Helpers

var errorCodes = []struct {
	err  error
	code string
}{
	{core.ErrInvalidConfiguration, "invalid_configuration"},
	{core.ErrOutOfRange, "out_of_range"},
	{core.ErrNotFound, "not_found"},
	{core.ErrAlreadyHit, "already_hit"},
	{core.ErrFlagLimitExceeded, "flag_limit_exceeded"},
	{core.ErrInvalidBatch, "invalid_batch"},
	{core.ErrCapacityExceeded, "capacity_exceeded"},
}

func (a *api) writeServiceError(w http.ResponseWriter, err error) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			writeError(w, http.StatusBadRequest, e.code, err.Error(), nil)
			return
		}
	}
	a.log.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
}

func boardID(w http.ResponseWriter, r *http.Request) (core.BoardID, bool) {
	raw := r.URL.Query().Get("board_id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "board_id is required", nil)
		return core.BoardID{}, false
	}
	id, err := core.ParseBoardID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "not_found", err.Error(), nil)
		return core.BoardID{}, false
	}
	return id, true
}

func boardAndCoordinate(w http.ResponseWriter, r *http.Request) (core.BoardID, core.Coordinate, bool) {
	id, ok := boardID(w, r)
	if !ok {
		return id, core.Coordinate{}, false
	}
	c, err := coordinate(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return id, core.Coordinate{}, false
	}
	return id, c, true
}

// coordinate reads x and y from the query string, or from a JSON body when
// the query carries neither.
func coordinate(w http.ResponseWriter, r *http.Request) (core.Coordinate, error) {
	q := r.URL.Query()
	if q.Has("x") || q.Has("y") {
		x, errX := strconv.Atoi(q.Get("x"))
		y, errY := strconv.Atoi(q.Get("y"))
		if errX != nil || errY != nil {
			return core.Coordinate{}, errors.New("x and y must be integers")
		}
		return core.Coordinate{X: x, Y: y}, nil
	}
	var body struct {
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.X == nil || body.Y == nil {
		return core.Coordinate{}, errors.New("x and y are required")
	}
	return core.Coordinate{X: *body.X, Y: *body.Y}, nil
}

// decodeBody decodes a JSON request body; an empty body yields io.EOF.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client address.
func withRateLimit(next http.Handler, rpm int, burst int, idle time.Duration) http.Handler {
	limiter := newRateLimiter(rpm, burst, idle)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	idle  time.Duration
	mu    sync.Mutex
	b     map[string]*bucket
	swept time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int, idle time.Duration) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		idle:  idle,
		b:     make(map[string]*bucket),
		swept: time.Now(),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idle > 0 && now.Sub(l.swept) > l.idle {
		for k, b := range l.b {
			if now.Sub(b.last) > l.idle {
				delete(l.b, k)
			}
		}
		l.swept = now
	}

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
