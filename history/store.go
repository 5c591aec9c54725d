package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"scorekeeper/core"
)

// RecordScore stores a new play for (g, d) and returns it. The record is
// prepended, retention is applied, the history persisted, and (for completed
// plays) the best-score index updated before both caches are invalidated.
func (m *Manager) RecordScore(ctx context.Context, g core.GameType, d core.Difficulty, data core.ScoreData) (core.Record, error) {
	p, err := partition(g, d)
	if err != nil {
		return core.Record{}, err
	}
	m.mu.Lock()
	rec, events, err := m.recordLocked(ctx, p, data)
	m.mu.Unlock()
	if err != nil {
		return core.Record{}, err
	}
	m.publish(ctx, events)
	return rec, nil
}

func (m *Manager) recordLocked(ctx context.Context, p core.Partition, data core.ScoreData) (core.Record, []core.Event, error) {
	rec, err := core.NewRecord(p, data, m.now())
	if err != nil {
		return core.Record{}, nil, err
	}

	best, hasBest, err := m.cachedBest(ctx, p)
	if err != nil {
		return core.Record{}, nil, err
	}
	var previous *float64
	if hasBest {
		previous = &best
	}
	rec.BestScore = rec.Completed && (!hasBest || rec.Score < best)

	records, err := m.loadHistory(ctx, p)
	if err != nil {
		return core.Record{}, nil, err
	}
	next := make([]core.Record, 0, len(records)+1)
	next = append(next, rec)
	next = append(next, records...)
	next = m.policy.Apply(p, next)

	defer m.cache.invalidate(p)
	kept, err := m.persistWithFallback(ctx, p, next)
	if err != nil {
		return core.Record{}, nil, err
	}
	// the play is stored from here on; a best-index failure is logged, not returned
	if rec.Completed {
		if err := m.rankWithinQuota(ctx, p, rec, kept); err != nil {
			m.log.Error("best scores not updated",
				slog.String("partition", p.String()),
				slog.String("record", rec.ID),
				slog.Any("error", err))
		}
	}
	return rec, m.derive(ctx, core.NewScoreRecorded(rec, previous)), nil
}

// persistWithFallback writes records; when the backend is full it drops the
// oldest record and retries until only the newest one is left. It returns
// the records actually stored.
func (m *Manager) persistWithFallback(ctx context.Context, p core.Partition, records []core.Record) ([]core.Record, error) {
	for {
		err := m.writeHistory(ctx, p, records)
		if err == nil {
			return records, nil
		}
		if !errors.Is(err, core.ErrStorageFull) || len(records) <= 1 {
			return nil, err
		}
		records = records[:len(records)-1]
		m.log.Warn("storage full, dropping oldest record",
			slog.String("partition", p.String()),
			slog.Int("remaining", len(records)))
	}
}

// rankWithinQuota ranks rec into the best-score index. When the backend is
// full the oldest stored plays give up their space first (stored is the
// persisted history, newest first), then the worst best entries. The partition
// best never gets worse while trimming.
func (m *Manager) rankWithinQuota(ctx context.Context, p core.Partition, rec core.Record, stored []core.Record) error {
	ranked, err := m.rankBestLocked(ctx, p, rec)
	if err != nil {
		return err
	}
	defer m.cache.invalidateBest(p)
	for {
		err := m.writeList(ctx, p.BestKey(), ranked)
		if err == nil || !errors.Is(err, core.ErrStorageFull) {
			return err
		}
		switch {
		case len(stored) > 1:
			stored = stored[:len(stored)-1]
			if err := m.writeHistory(ctx, p, stored); err != nil {
				return err
			}
			m.log.Warn("storage full, dropping oldest record for best scores",
				slog.String("partition", p.String()),
				slog.Int("remaining", len(stored)))
		case len(ranked) > 1:
			ranked = ranked[:len(ranked)-1]
			m.log.Warn("storage full, trimming best scores",
				slog.String("partition", p.String()),
				slog.Int("remaining", len(ranked)))
		default:
			return err
		}
	}
}

// GetHistory returns the stored plays for (g, d), newest first. Missing or
// corrupt data yields an empty list.
func (m *Manager) GetHistory(ctx context.Context, g core.GameType, d core.Difficulty) ([]core.Record, error) {
	p, err := partition(g, d)
	if err != nil {
		return nil, err
	}
	return m.loadHistory(ctx, p)
}

// DeleteRecord removes one play by id. Unknown ids are ignored. The best-score
// index is left as is, so a deleted play may remain the partition best.
func (m *Manager) DeleteRecord(ctx context.Context, g core.GameType, d core.Difficulty, id string) error {
	p, err := partition(g, d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	deleted, err := m.deleteLocked(ctx, p, id)
	m.mu.Unlock()
	if err != nil || !deleted {
		return err
	}
	m.publish(ctx, []core.Event{core.NewRecordDeleted(p, id)})
	return nil
}

func (m *Manager) deleteLocked(ctx context.Context, p core.Partition, id string) (bool, error) {
	records, err := m.loadHistory(ctx, p)
	if err != nil {
		return false, err
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return false, nil
	}
	defer m.cache.invalidateHistory(p)
	if err := m.writeHistory(ctx, p, kept); err != nil {
		return false, err
	}
	return true, nil
}

// ClearHistory removes the whole history of (g, d). Best scores are kept.
func (m *Manager) ClearHistory(ctx context.Context, g core.GameType, d core.Difficulty) error {
	p, err := partition(g, d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	err = m.store.Delete(ctx, p.HistoryKey())
	m.cache.invalidateHistory(p)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear history %s: %w", p, err)
	}
	m.publish(ctx, []core.Event{core.NewHistoryCleared(p)})
	return nil
}

// loadHistory reads through the history cache. The returned slice is a private copy.
func (m *Manager) loadHistory(ctx context.Context, p core.Partition) ([]core.Record, error) {
	if rs, ok := m.cache.getHistory(p); ok {
		return rs, nil
	}
	rs, err := m.readHistory(ctx, p)
	if err != nil {
		return nil, err
	}
	m.cache.putHistory(p, rs)
	return rs, nil
}

func (m *Manager) readHistory(ctx context.Context, p core.Partition) ([]core.Record, error) {
	return m.readList(ctx, p.HistoryKey())
}

func (m *Manager) writeHistory(ctx context.Context, p core.Partition, records []core.Record) error {
	return m.writeList(ctx, p.HistoryKey(), records)
}

// readList decodes a stored JSON array of records. Only transport errors are returned.
func (m *Manager) readList(ctx context.Context, key string) ([]core.Record, error) {
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return []core.Record{}, nil
	}
	var rs []core.Record
	if err := json.Unmarshal([]byte(raw), &rs); err != nil {
		m.log.Warn("discarding corrupt stored list", slog.String("key", key), slog.Any("error", err))
		return []core.Record{}, nil
	}
	if rs == nil {
		rs = []core.Record{}
	}
	return rs, nil
}

func (m *Manager) writeList(ctx context.Context, key string, records []core.Record) error {
	if records == nil {
		records = []core.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := m.store.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
