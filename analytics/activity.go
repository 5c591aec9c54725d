package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"scorekeeper/core"
	"scorekeeper/engine"
)

// DayActivity is one day of the persisted activity ledger.
type DayActivity struct {
	GamesPlayed int        `json:"gamesPlayed"`
	TotalTime   int64      `json:"totalTime"`
	LastPlayed  *time.Time `json:"lastPlayed"`
}

// DailyActivity maintains the gameStats key: a map from day (YYYY-MM-DD) to
// the plays and total play time of that day.
type DailyActivity struct {
	store engine.Storage
	log   *slog.Logger
	mu    sync.Mutex
}

func NewDailyActivity(store engine.Storage, log *slog.Logger) *DailyActivity {
	if log == nil {
		log = slog.Default()
	}
	return &DailyActivity{store: store, log: log}
}

// OnEvent counts every score_recorded event; failures are logged.
func (a *DailyActivity) OnEvent(ctx context.Context, e core.Event) {
	if e.Type != core.EventScoreRecorded {
		return
	}
	if err := a.Record(ctx, e.Time, e.TimeSpent); err != nil {
		a.log.Warn("daily activity not recorded", slog.Any("error", err))
	}
}

// Record adds one play lasting durationMs at time at.
func (a *DailyActivity) Record(ctx context.Context, at time.Time, durationMs int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ledger, err := a.load(ctx)
	if err != nil {
		return err
	}
	day := dayKey(at)
	entry := ledger[day]
	entry.GamesPlayed++
	entry.TotalTime += durationMs
	last := at.UTC().Truncate(time.Millisecond)
	entry.LastPlayed = &last
	ledger[day] = entry

	b, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("encode %s: %w", core.ActivityKey, err)
	}
	if err := a.store.Set(ctx, core.ActivityKey, string(b)); err != nil {
		return fmt.Errorf("write %s: %w", core.ActivityKey, err)
	}
	return nil
}

// Day returns the activity of one day.
func (a *DailyActivity) Day(ctx context.Context, day string) (DayActivity, bool, error) {
	ledger, err := a.load(ctx)
	if err != nil {
		return DayActivity{}, false, err
	}
	d, ok := ledger[day]
	return d, ok, nil
}

// Days lists the recorded days in ascending order.
func (a *DailyActivity) Days(ctx context.Context) ([]string, error) {
	ledger, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	days := make([]string, 0, len(ledger))
	for d := range ledger {
		days = append(days, d)
	}
	sort.Strings(days)
	return days, nil
}

// load reads the ledger; a missing or corrupt value is an empty ledger.
func (a *DailyActivity) load(ctx context.Context) (map[string]DayActivity, error) {
	raw, ok, err := a.store.Get(ctx, core.ActivityKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", core.ActivityKey, err)
	}
	ledger := map[string]DayActivity{}
	if !ok {
		return ledger, nil
	}
	if err := json.Unmarshal([]byte(raw), &ledger); err != nil {
		a.log.Warn("discarding corrupt activity ledger", slog.Any("error", err))
		return map[string]DayActivity{}, nil
	}
	return ledger, nil
}
