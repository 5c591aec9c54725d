package history

import (
	"log/slog"
	"time"

	"scorekeeper/engine"
)

// Option configures a Manager.
type Option func(*Manager)

// WithRetention selects the retention policy. A nil policy is ignored.
func WithRetention(p Policy) Option {
	return func(m *Manager) {
		if p != nil {
			m.policy = p
		}
	}
}

// WithBestScoresCap sets how many entries the best-score index keeps.
func WithBestScoresCap(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.bestCap = n
		}
	}
}

// WithCacheTTL sets the history cache freshness window. Zero disables history caching.
func WithCacheTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.cacheTTL = d
		}
	}
}

// WithPageSize sets the default page size.
func WithPageSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithClock replaces time.Now for record dates and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithPublisher sends every history event to p (typically an *engine.EventBus).
func WithPublisher(p engine.Publisher) Option {
	return func(m *Manager) { m.pub = p }
}

// WithRuleEngine replaces the default new-best rule engine; nil disables derived events.
func WithRuleEngine(r engine.RuleEngine) Option {
	return func(m *Manager) { m.rules = r }
}
