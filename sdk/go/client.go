package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"scorekeeper/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the scorekeeper HTTP + WebSocket API.
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

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
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

// RecordScore stores one play and returns the record the server built.
func (c *Client) RecordScore(ctx context.Context, game, difficulty string, data core.ScoreData) (core.Record, error) {
	u, err := c.gameURL(game, difficulty, "scores")
	if err != nil {
		return core.Record{}, err
	}
	body, err := json.Marshal(data)
	if err != nil {
		return core.Record{}, fmt.Errorf("encode score: %w", err)
	}
	var rec core.Record
	if err := c.doJSON(ctx, http.MethodPost, u, bytes.NewReader(body), &rec); err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

// History returns the full history of a partition, newest first.
func (c *Client) History(ctx context.Context, game, difficulty string) ([]core.Record, error) {
	u, err := c.gameURL(game, difficulty, "history")
	if err != nil {
		return nil, err
	}
	var records []core.Record
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// HistoryPage fetches one filtered, sorted page of history.
func (c *Client) HistoryPage(ctx context.Context, game, difficulty string, q PageQuery) (Page, error) {
	u, err := c.gameURL(game, difficulty, "history/page")
	if err != nil {
		return Page{}, err
	}
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sort_order", q.SortOrder)
	}
	if q.Completed != nil {
		v.Set("completed", strconv.FormatBool(*q.Completed))
	}
	if q.From != nil {
		v.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if q.To != nil {
		v.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.MinScore != nil {
		v.Set("min_score", strconv.FormatFloat(*q.MinScore, 'f', -1, 64))
	}
	if q.MaxScore != nil {
		v.Set("max_score", strconv.FormatFloat(*q.MaxScore, 'f', -1, 64))
	}
	if len(v) > 0 {
		u += "?" + v.Encode()
	}
	var page Page
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

// DeleteRecord removes one record by id. Unknown ids are not an error.
func (c *Client) DeleteRecord(ctx context.Context, game, difficulty, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyRecordID
	}
	u, err := c.gameURL(game, difficulty, "history/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, u, nil, nil)
}

// ClearHistory removes the history of a partition; best scores are kept.
func (c *Client) ClearHistory(ctx context.Context, game, difficulty string) error {
	u, err := c.gameURL(game, difficulty, "history")
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, u, nil, nil)
}

// BestScore returns the partition best. With compatible set the server also
// consults and migrates the legacy per-game record.
func (c *Client) BestScore(ctx context.Context, game, difficulty string, compatible bool) (Best, error) {
	u, err := c.gameURL(game, difficulty, "best")
	if err != nil {
		return Best{}, err
	}
	if compatible {
		u += "?compatible=true"
	}
	var b Best
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &b); err != nil {
		return Best{}, err
	}
	return b, nil
}

// BestScores returns the top-N records, best first.
func (c *Client) BestScores(ctx context.Context, game, difficulty string) ([]core.Record, error) {
	u, err := c.gameURL(game, difficulty, "best/records")
	if err != nil {
		return nil, err
	}
	var records []core.Record
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) ClearBestScores(ctx context.Context, game, difficulty string) error {
	u, err := c.gameURL(game, difficulty, "best")
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, u, nil, nil)
}

// Stats fetches the aggregate statistics of a partition.
func (c *Client) Stats(ctx context.Context, game, difficulty string) (Stats, error) {
	u, err := c.gameURL(game, difficulty, "stats")
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &st); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// ExportCSV downloads the CSV export of a partition.
func (c *Client) ExportCSV(ctx context.Context, game, difficulty string) (string, error) {
	u, err := c.gameURL(game, difficulty, "export.csv")
	if err != nil {
		return "", err
	}
	resp, err := c.send(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ResetAll removes every game's history, best scores and legacy records.
func (c *Client) ResetAll(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/reset", nil, nil)
}

func (c *Client) StorageInfo(ctx context.Context) (StorageInfo, error) {
	var info StorageInfo
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/storage", nil, &info); err != nil {
		return StorageInfo{}, err
	}
	return info, nil
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	resp, err := c.send(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()

	// an unhealthy server still answers with a status body
	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// Empty game/difficulty subscribe to everything. The returned channel closes
// when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, game, difficulty string) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	v := url.Values{}
	if game != "" {
		v.Set("game", game)
	}
	if difficulty != "" {
		v.Set("difficulty", difficulty)
	}
	if len(v) > 0 {
		target += "?" + v.Encode()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
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
			case <-ctx.Done():
				return
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) gameURL(game, difficulty, rest string) (string, error) {
	if strings.TrimSpace(game) == "" || strings.TrimSpace(difficulty) == "" {
		return "", ErrEmptyPartition
	}
	return fmt.Sprintf("%s/games/%s/%s/%s", c.baseURL, url.PathEscape(game), url.PathEscape(difficulty), rest), nil
}

func (c *Client) send(ctx context.Context, method, u string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)
	return c.httpClient.Do(req)
}

// doJSON performs the request and decodes the body into target unless it is nil.
func (c *Client) doJSON(ctx context.Context, method, u string, body io.Reader, target any) error {
	resp, err := c.send(ctx, method, u, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if target == nil {
		return checkStatus(resp)
	}
	return decodeJSON(resp, target)
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
