package history

import (
	"sync"
	"time"

	"scorekeeper/core"
)

type historyEntry struct {
	records  []core.Record
	loadedAt time.Time
}

type bestEntry struct {
	score float64
	ok    bool
}

// cache holds copies of stored partitions. History entries expire after ttl;
// best entries live until invalidated.
type cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	history map[string]historyEntry
	best    map[string]bestEntry
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	return &cache{
		ttl:     ttl,
		now:     now,
		history: map[string]historyEntry{},
		best:    map[string]bestEntry{},
	}
}

func (c *cache) getHistory(p core.Partition) ([]core.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.history[p.Key()]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.loadedAt) >= c.ttl {
		delete(c.history, p.Key())
		return nil, false
	}
	return cloneRecords(e.records), true
}

func (c *cache) putHistory(p core.Partition, records []core.Record) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history[p.Key()] = historyEntry{records: cloneRecords(records), loadedAt: c.now()}
}

func (c *cache) getBest(p core.Partition) (bestEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.best[p.Key()]
	return e, ok
}

func (c *cache) putBest(p core.Partition, e bestEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.best[p.Key()] = e
}

func (c *cache) invalidateHistory(p core.Partition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.history, p.Key())
}

func (c *cache) invalidateBest(p core.Partition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.best, p.Key())
}

func (c *cache) invalidate(p core.Partition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.history, p.Key())
	delete(c.best, p.Key())
}

func (c *cache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = map[string]historyEntry{}
	c.best = map[string]bestEntry{}
}

func cloneRecords(in []core.Record) []core.Record {
	if in == nil {
		return nil
	}
	out := make([]core.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
