package history

import (
	"context"
	"fmt"

	"scorekeeper/core"
	"scorekeeper/leaderboard"
)

// UpdateBestScores ranks rec into the best-score index of (g, d), keeping the
// lowest scores with ties in insertion order. Incomplete plays are ignored.
// Submitting a record whose ID is already indexed replaces that entry, and the
// replacement ranks after any existing entries with an equal score.
func (m *Manager) UpdateBestScores(ctx context.Context, g core.GameType, d core.Difficulty, rec core.Record) error {
	p, err := partition(g, d)
	if err != nil {
		return err
	}
	if !rec.Completed {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateBestLocked(ctx, p, rec)
}

func (m *Manager) updateBestLocked(ctx context.Context, p core.Partition, rec core.Record) error {
	ranked, err := m.rankBestLocked(ctx, p, rec)
	if err != nil {
		return err
	}
	defer m.cache.invalidateBest(p)
	return m.writeList(ctx, p.BestKey(), ranked)
}

// rankBestLocked returns the stored best list with rec ranked in, capped.
func (m *Manager) rankBestLocked(ctx context.Context, p core.Partition, rec core.Record) ([]core.Record, error) {
	current, err := m.readList(ctx, p.BestKey())
	if err != nil {
		return nil, err
	}
	board := leaderboard.NewSkipList()
	byID := make(map[string]core.Record, len(current)+1)
	for _, r := range current {
		board.Insert(r.ID, r.Score)
		byID[r.ID] = r
	}
	board.Insert(rec.ID, rec.Score)
	byID[rec.ID] = rec

	top := board.TopN(m.bestCap)
	ranked := make([]core.Record, 0, len(top))
	for _, e := range top {
		ranked = append(ranked, byID[e.ID])
	}
	return ranked, nil
}

// GetBestScore returns the lowest recorded score of (g, d). The answer is
// cached until the partition's best scores change.
func (m *Manager) GetBestScore(ctx context.Context, g core.GameType, d core.Difficulty) (float64, bool, error) {
	p, err := partition(g, d)
	if err != nil {
		return 0, false, err
	}
	return m.cachedBest(ctx, p)
}

// cachedBest reads through the best cache; callers may or may not hold m.mu.
func (m *Manager) cachedBest(ctx context.Context, p core.Partition) (float64, bool, error) {
	if e, ok := m.cache.getBest(p); ok {
		return e.score, e.ok, nil
	}
	list, err := m.readList(ctx, p.BestKey())
	if err != nil {
		return 0, false, err
	}
	e := bestEntry{}
	if len(list) > 0 {
		e = bestEntry{score: list[0].Score, ok: true}
	}
	m.cache.putBest(p, e)
	return e.score, e.ok, nil
}

// GetBestScoreRecord returns the full best record of (g, d), bypassing the cache.
func (m *Manager) GetBestScoreRecord(ctx context.Context, g core.GameType, d core.Difficulty) (core.Record, bool, error) {
	list, err := m.GetBestScores(ctx, g, d)
	if err != nil || len(list) == 0 {
		return core.Record{}, false, err
	}
	return list[0], true, nil
}

// GetBestScores returns the whole best-score index of (g, d), best first.
func (m *Manager) GetBestScores(ctx context.Context, g core.GameType, d core.Difficulty) ([]core.Record, error) {
	p, err := partition(g, d)
	if err != nil {
		return nil, err
	}
	return m.readList(ctx, p.BestKey())
}

// ClearBestScores drops the best-score index of (g, d). History is kept.
func (m *Manager) ClearBestScores(ctx context.Context, g core.GameType, d core.Difficulty) error {
	p, err := partition(g, d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	err = m.store.Delete(ctx, p.BestKey())
	m.cache.invalidateBest(p)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear best scores %s: %w", p, err)
	}
	m.publish(ctx, []core.Event{core.NewBestScoresCleared(p)})
	return nil
}
