package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/core"
)

func mkRecords(n int, score func(i int) float64, completed func(i int) bool) []core.Record {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.Record, n)
	for i := 0; i < n; i++ {
		// newest first: index 0 has the latest date
		out[i] = core.Record{
			ID:        fmt.Sprintf("r%03d", i),
			Score:     score(i),
			Date:      base.Add(time.Duration(n-i) * time.Minute),
			Completed: completed(i),
		}
	}
	return out
}

func always(int) bool { return true }

func TestRecentPolicy(t *testing.T) {
	p := core.Partition{Game: core.GameMouse, Difficulty: core.DifficultyDefault}
	rs := mkRecords(7, func(i int) float64 { return float64(i) }, always)

	kept := RecentPolicy{Cap: 5}.Apply(p, rs)
	require.Len(t, kept, 5)
	assert.Equal(t, "r000", kept[0].ID)
	assert.Equal(t, "r004", kept[4].ID)

	assert.Len(t, RecentPolicy{Cap: 10}.Apply(p, rs), 7)
	assert.Equal(t, DefaultRetentionCap, RecentPolicy{}.Limit(p))
}

func TestHybridPolicy_Limits(t *testing.T) {
	h := NewHybridPolicy(0)
	cases := []struct {
		g    core.GameType
		d    core.Difficulty
		want int
	}{
		{core.GameNumberPuzzle, "3x3", 80},
		{core.GameNumberPuzzle, "4x4", 100},
		{core.GameNumberPuzzle, "5x5", 60},
		{core.GameNumberPuzzle, "9x9", 80}, // first listed
		{core.GameImagePuzzle, "4x4", 80},
		{core.GameImagePuzzle, "3x3", 80},
		{core.GameStopwatch, core.DifficultyDefault, 150},
		{core.GameMouse, "hard", 100},
		{core.GameReaction, core.DifficultyDefault, 120},
		{"tetris", core.DifficultyDefault, DefaultRetentionCap},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.g, tc.d), func(t *testing.T) {
			assert.Equal(t, tc.want, h.Limit(core.Partition{Game: tc.g, Difficulty: tc.d}))
		})
	}
}

func TestHybridPolicy_KeepsBestAndRecent(t *testing.T) {
	h := HybridPolicy{Limits: map[core.GameType]GameLimit{"g": {Cap: 10}}}
	p := core.Partition{Game: "g", Difficulty: core.DifficultyDefault}

	// 20 records, newest first; the oldest ones have the best (lowest) scores.
	rs := mkRecords(20, func(i int) float64 { return float64(100 - i) }, always)
	kept := h.Apply(p, rs)

	require.Len(t, kept, 10)
	ids := map[string]bool{}
	for _, r := range kept {
		ids[r.ID] = true
	}
	// floor(10*0.7)=7 newest
	for i := 0; i < 7; i++ {
		assert.True(t, ids[fmt.Sprintf("r%03d", i)], "recent r%03d", i)
	}
	// floor(10*0.3)=3 best: r019, r018, r017
	for i := 17; i < 20; i++ {
		assert.True(t, ids[fmt.Sprintf("r%03d", i)], "best r%03d", i)
	}
	for i := 1; i < len(kept); i++ {
		assert.False(t, kept[i].Date.After(kept[i-1].Date), "kept list must stay newest-first")
	}
}

func TestHybridPolicy_SkipsIncompleteForBest(t *testing.T) {
	h := HybridPolicy{Limits: map[core.GameType]GameLimit{"g": {Cap: 10}}}
	p := core.Partition{Game: "g", Difficulty: core.DifficultyDefault}

	rs := mkRecords(20, func(i int) float64 { return float64(100 - i) }, func(i int) bool { return i < 15 })
	kept := h.Apply(p, rs)

	ids := map[string]bool{}
	for _, r := range kept {
		ids[r.ID] = true
	}
	assert.False(t, ids["r019"], "incomplete plays are never kept as best")
	assert.True(t, ids["r014"])
	assert.LessOrEqual(t, len(kept), 10)
}

func TestHybridPolicy_DedupsOverlap(t *testing.T) {
	h := HybridPolicy{Limits: map[core.GameType]GameLimit{"g": {Cap: 10}}}
	p := core.Partition{Game: "g", Difficulty: core.DifficultyDefault}

	// newest records are also the best ones, so both selections overlap
	rs := mkRecords(12, func(i int) float64 { return float64(i) }, always)
	kept := h.Apply(p, rs)
	assert.Len(t, kept, 7)
	assert.Equal(t, "r000", kept[0].ID)
}

func TestManager_HybridRetention(t *testing.T) {
	f := newFixture(t, WithRetention(NewHybridPolicy(0)))
	ctx := context.Background()
	g, d := core.GameImagePuzzle, core.Difficulty("4x4")

	for i := 0; i < 90; i++ {
		f.play(t, g, d, float64(i))
	}
	hist, err := f.m.GetHistory(ctx, g, d)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hist), 80)
	assert.Equal(t, 89.0, hist[0].Score)
	assert.Equal(t, 0.0, hist[len(hist)-1].Score, "best plays survive in the hybrid window")
}

func TestCleanAllHistories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, d := core.GameReaction, core.DifficultyDefault

	for i := 0; i < 8; i++ {
		f.play(t, g, d, float64(i))
	}
	f.play(t, core.GameMouse, core.DifficultyDefault, 1)
	require.NoError(t, f.store.Set(ctx, "gameHistory_broken", "[]"))

	// a manager with a tighter policy sweeps existing data on startup
	tight := NewManager(f.store, WithRetention(RecentPolicy{Cap: 3}), WithLogger(quietLogger()))
	require.NoError(t, tight.CleanAllHistories(ctx))

	hist, err := tight.GetHistory(ctx, g, d)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 6, 5}, scores(hist))

	mouse, _ := tight.GetHistory(ctx, core.GameMouse, core.DifficultyDefault)
	assert.Len(t, mouse, 1)

	require.NoError(t, tight.CleanHistory(ctx, g, d))
}
