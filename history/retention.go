package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"scorekeeper/core"
)

// Policy bounds a partition's stored history. Apply receives records newest-first
// and returns at most Limit(p) of them, still newest-first.
type Policy interface {
	Apply(p core.Partition, newestFirst []core.Record) []core.Record
	Limit(p core.Partition) int
	Name() string
}

const (
	PolicyRecent = "recent"
	PolicyHybrid = "hybrid"
)

// RecentPolicy keeps the Cap most recent records.
type RecentPolicy struct {
	Cap int
}

func (r RecentPolicy) Name() string { return PolicyRecent }

func (r RecentPolicy) Limit(core.Partition) int {
	if r.Cap <= 0 {
		return DefaultRetentionCap
	}
	return r.Cap
}

func (r RecentPolicy) Apply(p core.Partition, newestFirst []core.Record) []core.Record {
	limit := r.Limit(p)
	if len(newestFirst) <= limit {
		return newestFirst
	}
	return newestFirst[:limit]
}

// GameLimit is the retention cap for one game: either one cap for every
// difficulty, or an ordered per-difficulty table whose first row is the fallback.
type GameLimit struct {
	Cap          int
	ByDifficulty []DifficultyLimit
}

type DifficultyLimit struct {
	Difficulty core.Difficulty
	Cap        int
}

// DefaultHybridLimits is the per-game table the hybrid policy was tuned with.
func DefaultHybridLimits() map[core.GameType]GameLimit {
	return map[core.GameType]GameLimit{
		core.GameNumberPuzzle: {ByDifficulty: []DifficultyLimit{{"3x3", 80}, {"4x4", 100}, {"5x5", 60}}},
		core.GameImagePuzzle:  {ByDifficulty: []DifficultyLimit{{"4x4", 80}}},
		core.GameStopwatch:    {Cap: 150},
		core.GameMouse:        {Cap: 100},
		core.GameReaction:     {Cap: 120},
	}
}

// HybridPolicy keeps a share of the best completed plays alongside the most
// recent ones: on overflow, floor(cap*0.3) lowest-score completed records and
// floor(cap*0.7) newest records, deduplicated by id.
type HybridPolicy struct {
	Limits map[core.GameType]GameLimit
	// DefaultCap applies to games missing from Limits.
	DefaultCap int
}

// NewHybridPolicy returns a hybrid policy over DefaultHybridLimits.
func NewHybridPolicy(defaultCap int) HybridPolicy {
	if defaultCap <= 0 {
		defaultCap = DefaultRetentionCap
	}
	return HybridPolicy{Limits: DefaultHybridLimits(), DefaultCap: defaultCap}
}

func (h HybridPolicy) Name() string { return PolicyHybrid }

func (h HybridPolicy) Limit(p core.Partition) int {
	gl, ok := h.Limits[p.Game]
	switch {
	case !ok:
	case len(gl.ByDifficulty) > 0:
		for _, dl := range gl.ByDifficulty {
			if dl.Difficulty == p.Difficulty {
				return dl.Cap
			}
		}
		return gl.ByDifficulty[0].Cap
	case gl.Cap > 0:
		return gl.Cap
	}
	if h.DefaultCap > 0 {
		return h.DefaultCap
	}
	return DefaultRetentionCap
}

func (h HybridPolicy) Apply(p core.Partition, newestFirst []core.Record) []core.Record {
	limit := h.Limit(p)
	if len(newestFirst) <= limit {
		return newestFirst
	}

	best := make([]core.Record, 0, len(newestFirst))
	for _, r := range newestFirst {
		if r.Completed {
			best = append(best, r)
		}
	}
	sort.SliceStable(best, func(i, j int) bool { return best[i].Score < best[j].Score })
	best = best[:min(len(best), limit*3/10)]

	recent := make([]core.Record, len(newestFirst))
	copy(recent, newestFirst)
	sortNewestFirst(recent)
	recent = recent[:min(len(recent), limit*7/10)]

	seen := make(map[string]struct{}, len(best)+len(recent))
	out := make([]core.Record, 0, len(best)+len(recent))
	for _, r := range append(best, recent...) {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortNewestFirst(rs []core.Record) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Date.After(rs[j].Date) })
}

// CleanHistory re-applies the retention policy to one stored partition.
func (m *Manager) CleanHistory(ctx context.Context, g core.GameType, d core.Difficulty) error {
	p, err := partition(g, d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanLocked(ctx, p)
}

// CleanAllHistories sweeps every stored history partition. A failing partition
// is logged and skipped; the combined error is returned.
func (m *Manager) CleanAllHistories(ctx context.Context) error {
	keys, err := m.store.Keys(ctx, core.HistoryKeyPrefix)
	if err != nil {
		return fmt.Errorf("list history keys: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, k := range keys {
		p, ok := core.ParsePartitionKey(core.HistoryKeyPrefix, k)
		if !ok {
			m.log.Warn("skipping unrecognised history key", slog.String("key", k))
			continue
		}
		if err := m.cleanLocked(ctx, p); err != nil {
			m.log.Error("history sweep failed", slog.String("partition", p.String()), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) cleanLocked(ctx context.Context, p core.Partition) error {
	records, err := m.readHistory(ctx, p)
	if err != nil {
		return err
	}
	kept := m.policy.Apply(p, records)
	if len(kept) == len(records) {
		return nil
	}
	defer m.cache.invalidateHistory(p)
	if err := m.writeHistory(ctx, p, kept); err != nil {
		return err
	}
	m.log.Debug("history trimmed", slog.String("partition", p.String()),
		slog.Int("before", len(records)), slog.Int("after", len(kept)))
	return nil
}
