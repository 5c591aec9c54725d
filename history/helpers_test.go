package history

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scorekeeper/adapters/memory"
	"scorekeeper/core"
	"scorekeeper/engine"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingStore records how often the backend is read.
type countingStore struct {
	engine.Storage
	mu   sync.Mutex
	gets map[string]int
}

func newCountingStore(s engine.Storage) *countingStore {
	return &countingStore{Storage: s, gets: map[string]int{}}
}

func (c *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	c.gets[key]++
	c.mu.Unlock()
	return c.Storage.Get(ctx, key)
}

func (c *countingStore) reads(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets[key]
}

// cappedStore refuses history writes larger than maxValue bytes.
type cappedStore struct {
	engine.Storage
	maxValue int
}

func (c *cappedStore) Set(ctx context.Context, key, value string) error {
	if c.maxValue > 0 && strings.HasPrefix(key, core.HistoryKeyPrefix) && len(value) > c.maxValue {
		return fmt.Errorf("set %s: %w", key, core.ErrStorageFull)
	}
	return c.Storage.Set(ctx, key, value)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) types() []core.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	m     *Manager
	store *memory.Store
	clock *fakeClock
	pub   *recordingPublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), clock: newFakeClock(), pub: &recordingPublisher{}}
	base := []Option{WithClock(f.clock.Now), WithLogger(quietLogger()), WithPublisher(f.pub)}
	f.m = NewManager(f.store, append(base, opts...)...)
	return f
}

// play records a completed play one second after the previous one.
func (f *fixture) play(t *testing.T, g core.GameType, d core.Difficulty, score float64) core.Record {
	t.Helper()
	f.clock.Advance(time.Second)
	rec, err := f.m.RecordScore(context.Background(), g, d, core.ScoreData{Score: score})
	require.NoError(t, err)
	return rec
}

func scores(rs []core.Record) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Score
	}
	return out
}
