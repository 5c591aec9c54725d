package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/core"
)

func TestGetGameStats_KnownData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, d := core.GameNumberPuzzle, core.Difficulty("3x3")

	for i, s := range []float64{10, 20, 30} {
		f.clock.Advance(time.Second)
		_, err := f.m.RecordScore(ctx, g, d, core.ScoreData{Score: s, Moves: 10 * (i + 1), TimeSpent: int64(1000 * (i + 1))})
		require.NoError(t, err)
	}

	st, err := f.m.GetGameStats(ctx, g, d)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalGames)
	assert.Equal(t, 3, st.CompletedGames)
	require.NotNil(t, st.BestScore)
	assert.Equal(t, 10.0, *st.BestScore)
	assert.Equal(t, 20.0, *st.AverageScore)
	assert.Equal(t, 30.0, *st.WorstScore)
	assert.Equal(t, int64(6000), st.TotalTime)
	assert.Equal(t, 2000.0, *st.AverageTime)
	assert.Equal(t, 60, st.TotalMoves)
	assert.Equal(t, 20.0, *st.AverageMoves)
	assert.Equal(t, 20.0, *st.Recent5Avg)
	assert.Equal(t, 20.0, *st.Recent10Avg)
}

func TestGetGameStats_Empty(t *testing.T) {
	f := newFixture(t)
	st, err := f.m.GetGameStats(context.Background(), core.GameMouse, core.DifficultyDefault)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalGames)
	assert.Nil(t, st.BestScore)
	assert.Nil(t, st.AverageScore)
	assert.Nil(t, st.WorstScore)
	assert.Nil(t, st.AverageTime)
	assert.Nil(t, st.AverageMoves)
	assert.Nil(t, st.Recent5Avg)
	assert.Nil(t, st.Recent10Avg)
	assert.Zero(t, st.TotalTime)
}

func TestGetGameStats_BestFromIndexAfterTruncation(t *testing.T) {
	f := newFixture(t, WithRetention(RecentPolicy{Cap: 3}))
	ctx := context.Background()
	g, d := core.GameReaction, core.DifficultyDefault

	for _, s := range []float64{150, 300, 310, 320, 330} {
		f.play(t, g, d, s)
	}
	st, err := f.m.GetGameStats(ctx, g, d)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalGames)
	assert.Equal(t, 150.0, *st.BestScore, "best survives retention")
	assert.Equal(t, 330.0, *st.WorstScore)
}

func TestComputeStats_RoundingAndRecentWindows(t *testing.T) {
	var rs []core.Record
	// newest first: 1..12
	for i := 1; i <= 12; i++ {
		rs = append(rs, core.Record{Score: float64(i), Completed: i != 2})
	}
	st := computeStats(rs)
	assert.Equal(t, 12, st.TotalGames)
	assert.Equal(t, 11, st.CompletedGames)
	assert.Equal(t, 1.0, *st.BestScore)
	// (78-2)/11 = 6.909 -> 7
	assert.Equal(t, 7.0, *st.AverageScore)
	// first five: 1..5 -> 3
	assert.Equal(t, 3.0, *st.Recent5Avg)
	// first ten: 1..10 -> 5.5 rounds up to 6
	assert.Equal(t, 6.0, *st.Recent10Avg)

	few := computeStats([]core.Record{{Score: 1, Completed: true}, {Score: 2, Completed: true}})
	assert.Equal(t, 2.0, *few.Recent5Avg, "1.5 rounds half up")
	assert.Equal(t, 2.0, *few.Recent10Avg)

	assert.Equal(t, -2.0, roundHalfUp(-2.5))
	assert.Equal(t, 3.0, roundHalfUp(2.5))
}

func TestComputeStats_OnlyIncomplete(t *testing.T) {
	st := computeStats([]core.Record{{Score: 4}, {Score: 6}})
	assert.Equal(t, 2, st.TotalGames)
	assert.Equal(t, 0, st.CompletedGames)
	assert.Nil(t, st.BestScore)
	assert.Nil(t, st.AverageScore)
	require.NotNil(t, st.Recent5Avg)
	assert.Equal(t, 5.0, *st.Recent5Avg)
}
