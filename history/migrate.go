package history

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"scorekeeper/core"
)

// bestSource is where a partition's best score currently lives.
type bestSource interface{ bestSource() }

// structuredBest is the current format: a ranked list under bestScores_{g}_{d}.
type structuredBest struct{ score float64 }

// legacyScalar is a bare number under record_{g}, shared by every difficulty.
type legacyScalar struct {
	key   string
	value string
}

type noBest struct{}

func (structuredBest) bestSource() {}
func (legacyScalar) bestSource()   {}
func (noBest) bestSource()         {}

func (m *Manager) resolveBest(ctx context.Context, p core.Partition) (bestSource, error) {
	score, ok, err := m.cachedBest(ctx, p)
	if err != nil {
		return nil, err
	}
	if ok {
		return structuredBest{score: score}, nil
	}
	key := p.Game.LegacyKey()
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return noBest{}, nil
	}
	return legacyScalar{key: key, value: raw}, nil
}

// GetBestScoreCompatible is GetBestScore with a one-time upgrade path: when only
// a legacy record_{g} scalar exists it is recorded as a regular play, the
// legacy key is removed, and its value returned. Unparseable legacy values are
// left untouched and reported as not found.
func (m *Manager) GetBestScoreCompatible(ctx context.Context, g core.GameType, d core.Difficulty) (float64, bool, error) {
	p, err := partition(g, d)
	if err != nil {
		return 0, false, err
	}
	m.mu.Lock()
	score, found, events, err := m.compatibleLocked(ctx, p)
	m.mu.Unlock()
	if err != nil {
		return 0, false, err
	}
	m.publish(ctx, events)
	return score, found, nil
}

func (m *Manager) compatibleLocked(ctx context.Context, p core.Partition) (float64, bool, []core.Event, error) {
	src, err := m.resolveBest(ctx, p)
	if err != nil {
		return 0, false, nil, err
	}
	switch s := src.(type) {
	case structuredBest:
		return s.score, true, nil, nil
	case legacyScalar:
		v, ok := parseLegacy(s.value)
		if !ok {
			m.log.Warn("ignoring unparseable legacy best score",
				slog.String("key", s.key), slog.String("value", s.value))
			return 0, false, nil, nil
		}
		_, events, err := m.recordLocked(ctx, p, core.ScoreData{
			Score:     v,
			Completed: core.Bool(true),
			Extra:     map[string]any{"migratedFrom": s.key},
		})
		if err != nil {
			return 0, false, nil, fmt.Errorf("migrate %s: %w", s.key, err)
		}
		if err := m.store.Delete(ctx, s.key); err != nil {
			return 0, false, nil, fmt.Errorf("remove %s: %w", s.key, err)
		}
		m.log.Info("migrated legacy best score",
			slog.String("key", s.key), slog.String("partition", p.String()), slog.Float64("score", v))
		return v, true, append(events, core.NewLegacyMigrated(p, s.key, v)), nil
	default:
		return 0, false, nil, nil
	}
}

func parseLegacy(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
