// Package arcade assembles a ready-to-use history subsystem: storage, event
// bus, rules, realtime hub and analytics hooks around a history.Manager.
package arcade

import (
	"context"
	"log/slog"

	"scorekeeper/adapters/memory"
	"scorekeeper/analytics"
	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/history"
	"scorekeeper/realtime"
)

// Option configures the arcade builder.
type Option func(*config)

type config struct {
	storage  engine.Storage
	mode     engine.DispatchMode
	rules    engine.RuleEngine
	hub      *realtime.Hub
	hooks    []analytics.Hook
	activity bool
	log      *slog.Logger
	history  []history.Option
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithRuleEngine sets the rule engine.
func WithRuleEngine(r engine.RuleEngine) Option { return func(c *config) { c.rules = r } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all history events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithHooks attaches analytics hooks (webhook sinks, counters) to the bus.
func WithHooks(h ...analytics.Hook) Option { return func(c *config) { c.hooks = append(c.hooks, h...) } }

// WithDailyActivity toggles the persisted gameStats ledger (on by default).
func WithDailyActivity(on bool) Option { return func(c *config) { c.activity = on } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.log = l } }

// WithHistoryOptions passes options through to history.NewManager.
func WithHistoryOptions(opts ...history.Option) Option {
	return func(c *config) { c.history = append(c.history, opts...) }
}

// Arcade is the assembled subsystem.
type Arcade struct {
	Manager  *history.Manager
	Bus      *engine.EventBus
	Hub      *realtime.Hub
	Counter  *analytics.PlayCounter
	Activity *analytics.DailyActivity

	unsubscribe []func()
}

// New builds a configured Arcade. If not provided, defaults are used:
//   - storage: in-memory
//   - rules: DefaultRuleEngine
//   - dispatch: async
func New(opts ...Option) *Arcade {
	cfg := &config{mode: engine.DispatchAsync, rules: engine.DefaultRuleEngine(), activity: true, log: slog.Default()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = memory.New()
	}
	bus := engine.NewEventBus(cfg.mode)
	a := &Arcade{Bus: bus, Hub: cfg.hub, Counter: analytics.NewPlayCounter()}

	hooks := append([]analytics.Hook{a.Counter}, cfg.hooks...)
	if cfg.activity {
		a.Activity = analytics.NewDailyActivity(cfg.storage, cfg.log)
		hooks = append(hooks, a.Activity)
	}
	a.unsubscribe = append(a.unsubscribe, analytics.Attach(bus, hooks...))
	if cfg.hub != nil {
		// Bridge all events to realtime
		a.unsubscribe = append(a.unsubscribe, bus.SubscribeAll(func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) }))
	}

	hopts := append([]history.Option{
		history.WithPublisher(bus),
		history.WithRuleEngine(cfg.rules),
		history.WithLogger(cfg.log),
	}, cfg.history...)
	a.Manager = history.NewManager(cfg.storage, hopts...)
	// histories stored under an older cap or policy are trimmed before first use
	if err := a.Manager.CleanAllHistories(context.Background()); err != nil {
		cfg.log.Error("startup history sweep failed", "error", err)
	}
	return a
}

// Close drains the event bus into the hooks, then detaches them.
func (a *Arcade) Close() {
	a.Bus.Close()
	for _, u := range a.unsubscribe {
		u()
	}
}
