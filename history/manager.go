// Package history records plays per (game, difficulty) partition and answers
// history, best-score, paging, statistics and export queries over them.
//
// All durable state lives in an engine.Storage under the key layout defined in
// core; the Manager adds read caches, retention, a separately capped best-score
// index and the lazy migration of legacy best-score keys.
package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scorekeeper/core"
	"scorekeeper/engine"
)

const (
	DefaultRetentionCap  = 200
	DefaultBestScoresCap = 10
	DefaultPageSize      = 20
	DefaultCacheTTL      = 30 * time.Second
)

// Manager is the history subsystem. Construct one per process and share it.
type Manager struct {
	store    engine.Storage
	policy   Policy
	bestCap  int
	pageSize int
	now      func() time.Time
	log      *slog.Logger
	pub      engine.Publisher
	rules    engine.RuleEngine
	cacheTTL time.Duration
	cache    *cache

	// mu serialises read-modify-write sequences against the store.
	mu sync.Mutex
}

// NewManager builds a Manager over store. Without options it keeps the 200 most
// recent plays per partition, a top-10 best index, and a 30s history cache.
func NewManager(store engine.Storage, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		policy:   RecentPolicy{Cap: DefaultRetentionCap},
		bestCap:  DefaultBestScoresCap,
		pageSize: DefaultPageSize,
		now:      time.Now,
		log:      slog.Default(),
		rules:    engine.DefaultRuleEngine(),
		cacheTTL: DefaultCacheTTL,
	}
	for _, o := range opts {
		o(m)
	}
	m.cache = newCache(m.cacheTTL, m.now)
	return m
}

// Policy reports the active retention policy.
func (m *Manager) Policy() Policy { return m.policy }

// PageSize reports the default page size used when a request leaves it at 0.
func (m *Manager) PageSize() int { return m.pageSize }

func (m *Manager) publish(ctx context.Context, events []core.Event) {
	if m.pub == nil {
		return
	}
	for _, ev := range events {
		m.pub.Publish(ctx, ev)
	}
}

// derive runs the rule engine on trigger and returns trigger followed by derived events.
func (m *Manager) derive(ctx context.Context, trigger core.Event) []core.Event {
	out := []core.Event{trigger}
	if m.rules != nil {
		out = append(out, m.rules.Evaluate(ctx, trigger)...)
	}
	return out
}

func partition(g core.GameType, d core.Difficulty) (core.Partition, error) {
	return core.NewPartition(g, d)
}
