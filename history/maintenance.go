package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"scorekeeper/core"
)

// prefixDeleter is implemented by stores that can drop a key range in one call.
type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// ResetAllGames removes every history, best-score and legacy best key. It
// reports false (and logs) on any failure instead of returning an error.
func (m *Manager) ResetAllGames(ctx context.Context) bool {
	m.mu.Lock()
	removed, err := m.resetLocked(ctx)
	m.cache.reset()
	m.mu.Unlock()
	if err != nil {
		m.log.Error("reset all games failed", slog.Int("removed", removed), slog.Any("error", err))
		return false
	}
	m.log.Info("all games reset", slog.Int("removed", removed))
	m.publish(ctx, []core.Event{core.NewGamesReset(removed)})
	return true
}

func (m *Manager) resetLocked(ctx context.Context) (int, error) {
	removed := 0
	for _, prefix := range []string{core.HistoryKeyPrefix, core.BestKeyPrefix} {
		if pd, ok := m.store.(prefixDeleter); ok {
			n, err := pd.DeletePrefix(ctx, prefix)
			removed += n
			if err != nil {
				return removed, fmt.Errorf("delete %s*: %w", prefix, err)
			}
			continue
		}
		keys, err := m.store.Keys(ctx, prefix)
		if err != nil {
			return removed, fmt.Errorf("list %s*: %w", prefix, err)
		}
		for _, k := range keys {
			if err := m.store.Delete(ctx, k); err != nil {
				return removed, fmt.Errorf("delete %s: %w", k, err)
			}
			removed++
		}
	}
	all, err := m.store.Keys(ctx, "")
	if err != nil {
		return removed, fmt.Errorf("list keys: %w", err)
	}
	for _, k := range all {
		if !core.IsLegacyBestKey(k) {
			continue
		}
		if err := m.store.Delete(ctx, k); err != nil {
			return removed, fmt.Errorf("delete %s: %w", k, err)
		}
		removed++
	}
	return removed, nil
}

// CategoryUsage counts keys and bytes (key plus value length) for one kind of key.
type CategoryUsage struct {
	Keys  int `json:"keys"`
	Bytes int `json:"bytes"`
}

// StorageInfo describes what the history subsystem currently holds.
type StorageInfo struct {
	History    CategoryUsage    `json:"history"`
	Best       CategoryUsage    `json:"best"`
	Legacy     CategoryUsage    `json:"legacy"`
	Other      CategoryUsage    `json:"other"`
	TotalBytes int              `json:"totalBytes"`
	Partitions []core.Partition `json:"partitions"`
}

// StorageInfo scans the store and returns usage per key category, or nil if
// the scan fails.
func (m *Manager) StorageInfo(ctx context.Context) *StorageInfo {
	keys, err := m.store.Keys(ctx, "")
	if err != nil {
		m.log.Error("storage info: list keys", slog.Any("error", err))
		return nil
	}
	info := &StorageInfo{Partitions: []core.Partition{}}
	seen := map[string]bool{}
	for _, k := range keys {
		v, ok, err := m.store.Get(ctx, k)
		if err != nil {
			m.log.Error("storage info: read key", slog.String("key", k), slog.Any("error", err))
			return nil
		}
		if !ok {
			continue
		}
		size := len(k) + len(v)
		info.TotalBytes += size

		var bucket *CategoryUsage
		var p core.Partition
		var isPartition bool
		switch {
		case strings.HasPrefix(k, core.HistoryKeyPrefix):
			bucket = &info.History
			p, isPartition = core.ParsePartitionKey(core.HistoryKeyPrefix, k)
		case strings.HasPrefix(k, core.BestKeyPrefix):
			bucket = &info.Best
			p, isPartition = core.ParsePartitionKey(core.BestKeyPrefix, k)
		case core.IsLegacyBestKey(k):
			bucket = &info.Legacy
		default:
			bucket = &info.Other
		}
		bucket.Keys++
		bucket.Bytes += size
		if isPartition && !seen[p.Key()] {
			seen[p.Key()] = true
			info.Partitions = append(info.Partitions, p)
		}
	}
	sort.Slice(info.Partitions, func(i, j int) bool {
		return info.Partitions[i].Key() < info.Partitions[j].Key()
	})
	return info
}
