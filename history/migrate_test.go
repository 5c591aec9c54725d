package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/core"
)

func TestGetBestScoreCompatible_MigratesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "record_stopwatch", "1.234"))

	v, ok, err := f.m.GetBestScoreCompatible(ctx, core.GameStopwatch, core.DifficultyDefault)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.234, v)

	_, exists, _ := f.store.Get(ctx, "record_stopwatch")
	assert.False(t, exists, "legacy key removed after migration")

	v2, ok, err := f.m.GetBestScoreCompatible(ctx, core.GameStopwatch, core.DifficultyDefault)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v, v2)

	hist, err := f.m.GetHistory(ctx, core.GameStopwatch, core.DifficultyDefault)
	require.NoError(t, err)
	require.Len(t, hist, 1, "second call must not insert again")
	assert.Equal(t, "record_stopwatch", hist[0].Extra["migratedFrom"])
	assert.Equal(t, 0, hist[0].Moves)
	assert.Equal(t, int64(0), hist[0].TimeSpent)
	assert.True(t, hist[0].Completed)

	best, ok, _ := f.m.GetBestScore(ctx, core.GameStopwatch, core.DifficultyDefault)
	assert.True(t, ok)
	assert.Equal(t, 1.234, best)

	assert.Equal(t, []core.EventType{core.EventScoreRecorded, core.EventNewBest, core.EventLegacyMigrated}, f.pub.types())
}

func TestGetBestScoreCompatible_PrefersStructured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.play(t, core.GameReaction, core.DifficultyDefault, 180)
	require.NoError(t, f.store.Set(ctx, "record_reaction", "150"))

	v, ok, err := f.m.GetBestScoreCompatible(ctx, core.GameReaction, core.DifficultyDefault)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 180.0, v)

	_, exists, _ := f.store.Get(ctx, "record_reaction")
	assert.True(t, exists, "legacy key only consumed when no structured best exists")
}

func TestGetBestScoreCompatible_UnparseableLegacy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "record_mouse", "--"))

	_, ok, err := f.m.GetBestScoreCompatible(ctx, core.GameMouse, core.DifficultyDefault)
	require.NoError(t, err)
	assert.False(t, ok)

	raw, exists, _ := f.store.Get(ctx, "record_mouse")
	assert.True(t, exists)
	assert.Equal(t, "--", raw)

	hist, _ := f.m.GetHistory(ctx, core.GameMouse, core.DifficultyDefault)
	assert.Empty(t, hist)
}

func TestGetBestScoreCompatible_NothingStored(t *testing.T) {
	f := newFixture(t)
	_, ok, err := f.m.GetBestScoreCompatible(context.Background(), core.GameMouse, core.DifficultyDefault)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.pub.types())
}

func TestParseLegacy(t *testing.T) {
	for in, want := range map[string]float64{"42": 42, " 3.5 ": 3.5, "-1": -1} {
		v, ok := parseLegacy(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, v)
	}
	for _, in := range []string{"", "abc", "NaN", "Inf", "12px"} {
		_, ok := parseLegacy(in)
		assert.False(t, ok, in)
	}
}
