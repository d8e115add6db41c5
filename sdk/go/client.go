package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ryandem1/minesweeper-async/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the minesweeper oracle HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// CreateBoard checks out a new board. A nil settings uses the server default.
func (c *Client) CreateBoard(ctx context.Context, settings *BoardSettings) (Board, error) {
	var b Board
	var body any
	if settings != nil {
		body = settings
	}
	err := c.do(ctx, http.MethodPost, "/board", nil, body, &b)
	return b, err
}

// Score returns the running total across checked boards.
func (c *Client) Score(ctx context.Context) (float64, error) {
	var body struct {
		Score float64 `json:"score"`
	}
	err := c.do(ctx, http.MethodGet, "/score", nil, nil, &body)
	return body.Score, err
}

// IsMine asks the oracle whether (x, y) is a mine.
func (c *Client) IsMine(ctx context.Context, id core.BoardID, x, y int) (bool, error) {
	var body struct {
		Answer bool `json:"answer"`
	}
	err := c.do(ctx, http.MethodGet, "/is_space_a_mine", spaceQuery(id, x, y), nil, &body)
	return body.Answer, err
}

// IsBlank asks the oracle whether (x, y) has no adjacent mines.
func (c *Client) IsBlank(ctx context.Context, id core.BoardID, x, y int) (bool, error) {
	var body struct {
		Answer bool `json:"answer"`
	}
	err := c.do(ctx, http.MethodGet, "/is_space_blank", spaceQuery(id, x, y), nil, &body)
	return body.Answer, err
}

// SpaceValue returns the adjacency value of (x, y).
func (c *Client) SpaceValue(ctx context.Context, id core.BoardID, x, y int) (int, error) {
	var body struct {
		Answer int `json:"answer"`
	}
	err := c.do(ctx, http.MethodGet, "/space_value", spaceQuery(id, x, y), nil, &body)
	return body.Answer, err
}

// Hit hits one space.
func (c *Client) Hit(ctx context.Context, id core.BoardID, x, y int) (SpaceState, error) {
	var st SpaceState
	err := c.do(ctx, http.MethodPost, "/hit", spaceQuery(id, x, y), nil, &st)
	return st, err
}

// Flag toggles the flag on one space.
func (c *Client) Flag(ctx context.Context, id core.BoardID, x, y int) (SpaceState, error) {
	var st SpaceState
	err := c.do(ctx, http.MethodPost, "/flag", spaceQuery(id, x, y), nil, &st)
	return st, err
}

// BatchHit hits every coordinate or none.
func (c *Client) BatchHit(ctx context.Context, id core.BoardID, cs []Coordinate) ([]SpaceState, error) {
	if cs == nil {
		cs = []Coordinate{}
	}
	var out []SpaceState
	err := c.do(ctx, http.MethodPost, "/batch_hit", boardQuery(id), cs, &out)
	return out, err
}

// Check submits the board for scoring. The board cannot be used afterwards.
func (c *Client) Check(ctx context.Context, id core.BoardID) (CheckResult, error) {
	var res CheckResult
	err := c.do(ctx, http.MethodPost, "/check", boardQuery(id), nil, &res)
	return res, err
}

// Boards lists outstanding boards.
func (c *Client) Boards(ctx context.Context) (BoardList, error) {
	var list BoardList
	err := c.do(ctx, http.MethodGet, "/boards", nil, nil, &list)
	return list, err
}

// Leaderboard returns the n best checked boards.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	q := url.Values{}
	if n > 0 {
		q.Set("n", strconv.Itoa(n))
	}
	var body struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
	err := c.do(ctx, http.MethodGet, "/leaderboard", q, nil, &body)
	return body.Entries, err
}

// Stats returns play counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &st)
	return st, err
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &hs)
	return hs, err
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query.Has("board_id") && query.Get("board_id") == (core.BoardID{}).String() {
		return ErrEmptyBoardID
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

func boardQuery(id core.BoardID) url.Values {
	q := url.Values{}
	q.Set("board_id", id.String())
	return q
}

func spaceQuery(id core.BoardID, x, y int) url.Values {
	q := boardQuery(id)
	q.Set("x", strconv.Itoa(x))
	q.Set("y", strconv.Itoa(y))
	return q
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
