package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/adapters/memory"
	"scorekeeper/core"
)

func TestResetAllGames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.play(t, core.GameReaction, core.DifficultyDefault, 220)
	f.play(t, core.GameNumberPuzzle, "3x3", 40)
	for _, k := range []string{"record_mouse", "stopwatch_best_10_normal", "reaction_bests", "gameStats", "theme"} {
		require.NoError(t, f.store.Set(ctx, k, "1"))
	}
	_, _ = f.m.GetHistory(ctx, core.GameReaction, core.DifficultyDefault)

	assert.True(t, f.m.ResetAllGames(ctx))

	keys, err := f.store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"gameStats", "theme"}, keys)

	hist, _ := f.m.GetHistory(ctx, core.GameReaction, core.DifficultyDefault)
	assert.Empty(t, hist, "cache cleared with the data")
	_, ok, _ := f.m.GetBestScore(ctx, core.GameReaction, core.DifficultyDefault)
	assert.False(t, ok)

	types := f.pub.types()
	require.NotEmpty(t, types)
	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, core.EventGamesReset, last.Type)
	assert.Equal(t, 7, last.Metadata["keysRemoved"])
}

type failingKeysStore struct{ *memory.Store }

func (failingKeysStore) Keys(context.Context, string) ([]string, error) {
	return nil, errors.New("backend down")
}

func TestResetAllGames_ReportsFailure(t *testing.T) {
	m := NewManager(failingKeysStore{memory.New()}, WithLogger(quietLogger()))
	assert.False(t, m.ResetAllGames(context.Background()))
	assert.Nil(t, m.StorageInfo(context.Background()))
}

func TestStorageInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.play(t, core.GameReaction, core.DifficultyDefault, 220)
	f.play(t, core.GameNumberPuzzle, "3x3", 40)
	require.NoError(t, f.store.Set(ctx, "record_mouse", "99"))
	require.NoError(t, f.store.Set(ctx, "gameStats", "{}"))

	info := f.m.StorageInfo(ctx)
	require.NotNil(t, info)
	assert.Equal(t, 2, info.History.Keys)
	assert.Equal(t, 2, info.Best.Keys)
	assert.Equal(t, 1, info.Legacy.Keys)
	assert.Equal(t, len("record_mouse")+2, info.Legacy.Bytes)
	assert.Equal(t, 1, info.Other.Keys)
	assert.Equal(t, f.store.Size(), info.TotalBytes)
	assert.Equal(t, []core.Partition{
		{Game: core.GameNumberPuzzle, Difficulty: "3x3"},
		{Game: core.GameReaction, Difficulty: core.DifficultyDefault},
	}, info.Partitions)
}
