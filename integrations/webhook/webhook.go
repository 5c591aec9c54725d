package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"scorekeeper/core"
)

// Sink posts history events to configured HTTP endpoints.
// It is synchronous for determinism; run it behind an async EventBus in servers.
type Sink struct {
	client    *http.Client
	endpoints []string
	events    map[core.EventType]bool
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

// WithEvents restricts delivery to the given event types. No types means all.
func WithEvents(types ...core.EventType) Option {
	return func(s *Sink) {
		if len(types) == 0 {
			return
		}
		s.events = map[core.EventType]bool{}
		for _, t := range types {
			s.events[t] = true
		}
	}
}

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
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// OnEvent posts the event JSON to all endpoints. Delivery failures are logged, never returned.
func (s *Sink) OnEvent(ctx context.Context, e core.Event) {
	if len(s.endpoints) == 0 || (s.events != nil && !s.events[e.Type]) {
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.log.Error("webhook: encode event", slog.Any("error", err))
		return
	}
	for _, ep := range s.endpoints {
		if err := s.post(ctx, ep, e.Type, body); err != nil {
			s.log.Warn("webhook delivery failed",
				slog.String("endpoint", ep),
				slog.String("event", string(e.Type)),
				slog.Any("error", err))
		}
	}
}

func (s *Sink) post(ctx context.Context, endpoint string, typ core.EventType, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Scorekeeper-Event", string(typ))
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
