package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scorekeeper/core"
)

// Hook receives history events for aggregation.
type Hook interface {
	OnEvent(ctx context.Context, e core.Event)
}

// PlayCounter keeps in-memory play counts per day, ISO week and game, plus the
// set of partitions that saw activity on each day.
type PlayCounter struct {
	mu       sync.Mutex
	byDay    map[string]int
	byWeek   map[string]int
	byGame   map[core.GameType]int
	newBests map[string]int
	active   map[string]map[core.Partition]struct{}
}

func NewPlayCounter() *PlayCounter {
	return &PlayCounter{
		byDay:    map[string]int{},
		byWeek:   map[string]int{},
		byGame:   map[core.GameType]int{},
		newBests: map[string]int{},
		active:   map[string]map[core.Partition]struct{}{},
	}
}

func (c *PlayCounter) OnEvent(_ context.Context, e core.Event) {
	day := dayKey(e.Time)
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case core.EventScoreRecorded:
		c.byDay[day]++
		c.byWeek[getWeekKey(e.Time)]++
		c.byGame[e.Game]++
		m := c.active[day]
		if m == nil {
			m = map[core.Partition]struct{}{}
			c.active[day] = m
		}
		m[e.Partition()] = struct{}{}
	case core.EventNewBest:
		c.newBests[day]++
	}
}

// Plays returns the number of recorded plays on day (YYYY-MM-DD, UTC).
func (c *PlayCounter) Plays(day string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byDay[day]
}

// WeeklyPlays takes an ISO week key such as "2024-W09".
func (c *PlayCounter) WeeklyPlays(week string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byWeek[week]
}

func (c *PlayCounter) PlaysByGame(g core.GameType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byGame[g]
}

func (c *PlayCounter) NewBests(day string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newBests[day]
}

// ActivePartitions counts the distinct (game, difficulty) pairs played on day.
func (c *PlayCounter) ActivePartitions(day string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active[day])
}

// Helper functions
func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func getWeekKey(t time.Time) string {
	tt := t.UTC()
	year, week := tt.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
