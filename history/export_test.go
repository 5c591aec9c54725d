package history

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/core"
)

func exportFixture() []core.Record {
	return []core.Record{
		{
			ID: "rec-1", GameType: core.GameReaction, Difficulty: core.DifficultyDefault,
			Score: 312.5, Moves: 0, TimeSpent: 3125,
			Date:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Completed: true, BestScore: true,
			Extra: map[string]any{"note": "fast, clean"},
		},
		{
			ID: "rec-2", GameType: core.GameReaction, Difficulty: core.DifficultyDefault,
			Score: 400, Moves: 0, TimeSpent: 4000,
			Date:  time.Date(2024, 2, 29, 9, 30, 15, 250_000_000, time.UTC),
			Extra: map[string]any{"note": "slow"},
		},
		{
			ID: "rec-3", GameType: core.GameReaction, Difficulty: core.DifficultyDefault,
			Score: 350, Moves: 12, TimeSpent: 3500,
			Date:      time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC),
			Completed: true,
		},
	}
}

func TestWriteCSV_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportFixture()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "reaction_history", buf.Bytes())
}

func TestWriteCSV_ExtrasOnlyFromFirstRecord(t *testing.T) {
	rs := exportFixture()
	rs[0].Extra = nil
	rs[1].Extra = map[string]any{"combo": []any{1.0, 2.0}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rs))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "core_columns_only", buf.Bytes())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestCSVCell(t *testing.T) {
	assert.Equal(t, "", csvCell(nil))
	assert.Equal(t, `"a,b"`, csvCell("a,b"))
	assert.Equal(t, `say "hi"`, csvCell(`say "hi"`))
	assert.Equal(t, "0.1", csvCell(0.1))
	assert.Equal(t, "1000000", csvCell(1e6))
	assert.Equal(t, "false", csvCell(false))
	assert.Equal(t, `{"x":1}`, csvCell(map[string]any{"x": 1}))
}

func TestManager_ExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, d := core.GameMouse, core.DifficultyDefault

	f.play(t, g, d, 12.25)
	f.play(t, g, d, 11)

	var buf bytes.Buffer
	require.NoError(t, f.m.ExportCSV(ctx, g, d, &buf))
	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,gameType,difficulty,score,moves,timeSpent,date,completed,bestScore", lines[0])
	assert.Contains(t, lines[1], ",mouse,default,11,0,0,2024-03-01T12:00:02.000Z,true,true")
	assert.False(t, strings.HasSuffix(buf.String(), "\n"))

	assert.Equal(t, "mouse_default_history.csv", ExportFilename(g, d))
}
