package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/adapters/jsonfile"
	"scorekeeper/core"
)

// run executes the root command against store and returns stdout.
func run(t *testing.T, store string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--store", store}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"record", "history", "page", "best", "stats", "delete", "clear", "clear-best", "export", "clean", "reset", "info"}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	store := cmd.PersistentFlags().Lookup("store")
	require.NotNil(t, store)
	assert.Equal(t, DefaultStorePath, store.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "s.json"), "--format", "xml", "info")
	assert.Error(t, err)
}

func TestRecordHistoryBest(t *testing.T) {
	store := filepath.Join(t.TempDir(), "scores.json")

	out, err := run(t, store, "record", "reaction", "default", "280", "--time", "280")
	require.NoError(t, err)
	assert.Contains(t, out, "(new best)")

	out, err = run(t, store, "--format", "json", "record", "reaction", "default", "240", "--extra", "attempts=5", "--extra", "note=quick")
	require.NoError(t, err)
	rec := decode[core.Record](t, out)
	assert.Equal(t, 240.0, rec.Score)
	assert.EqualValues(t, 5, rec.Extra["attempts"])
	assert.Equal(t, "quick", rec.Extra["note"])

	_, err = run(t, store, "record", "reaction", "default", "500", "--incomplete")
	require.NoError(t, err)

	out, err = run(t, store, "--format", "json", "history", "reaction", "default")
	require.NoError(t, err)
	records := decode[[]core.Record](t, out)
	require.Len(t, records, 3)
	assert.False(t, records[0].Completed)

	out, err = run(t, store, "history", "reaction", "default", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"), out)

	out, err = run(t, store, "best", "reaction", "default")
	require.NoError(t, err)
	assert.Equal(t, "Best: 240\n", out)

	out, err = run(t, store, "--format", "json", "best", "reaction", "default", "--list")
	require.NoError(t, err)
	best := decode[[]core.Record](t, out)
	require.Len(t, best, 2)
	assert.Equal(t, 240.0, best[0].Score)

	out, err = run(t, store, "stats", "reaction", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "260")
}

func TestRecordValidation(t *testing.T) {
	store := filepath.Join(t.TempDir(), "scores.json")

	_, err := run(t, store, "record", "reaction", "default", "fast")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, store, "record", "reaction", "hard_mode", "10")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, store, "record", "reaction", "default", "10", "--extra", "novalue")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPage(t *testing.T) {
	store := filepath.Join(t.TempDir(), "scores.json")
	for _, s := range []string{"30", "10", "20", "40"} {
		_, err := run(t, store, "record", "puzzle", "easy", s, "--moves", s)
		require.NoError(t, err)
	}

	out, err := run(t, store, "--format", "json", "page", "puzzle", "easy", "--sort", "moves", "--order", "asc", "--size", "3", "--max", "35")
	require.NoError(t, err)
	type pageData struct {
		Records    []core.Record `json:"records"`
		Total      int           `json:"total"`
		TotalPages int           `json:"totalPages"`
	}
	page := decode[pageData](t, out)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []int{10, 20, 30}, []int{page.Records[0].Moves, page.Records[1].Moves, page.Records[2].Moves})

	_, err = run(t, store, "page", "puzzle", "easy", "--sort", "colour")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, store, "page", "puzzle", "easy", "--from", "last week")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBestCompatibleMigratesLegacy(t *testing.T) {
	store := filepath.Join(t.TempDir(), "scores.json")
	fs, err := jsonfile.New(store)
	require.NoError(t, err)
	require.NoError(t, fs.Set(context.Background(), core.GameType("tracer").LegacyKey(), "42.5"))

	out, err := run(t, store, "best", "tracer", "normal")
	require.NoError(t, err)
	assert.Equal(t, "No best score yet\n", out)

	out, err = run(t, store, "best", "tracer", "normal", "--compatible")
	require.NoError(t, err)
	assert.Equal(t, "Best: 42.5\n", out)

	out, err = run(t, store, "--format", "json", "history", "tracer", "normal")
	require.NoError(t, err)
	records := decode[[]core.Record](t, out)
	require.Len(t, records, 1)
	assert.Equal(t, "record_tracer", records[0].Extra["migratedFrom"])
}

func TestDeleteClearExport(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "scores.json")

	out, err := run(t, store, "--format", "json", "record", "stopwatch", "hard", "1.25")
	require.NoError(t, err)
	first := decode[core.Record](t, out)
	_, err = run(t, store, "record", "stopwatch", "hard", "0.75")
	require.NoError(t, err)

	csvPath := filepath.Join(dir, "out", "stopwatch.csv")
	_, err = run(t, store, "export", "stopwatch", "hard", "-o", csvPath)
	require.NoError(t, err)
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(string(raw), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,gameType,difficulty,score"))

	out, err = run(t, store, "export", "stopwatch", "hard", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, string(raw), out)

	_, err = run(t, store, "delete", "stopwatch", "hard", first.ID)
	require.NoError(t, err)
	out, err = run(t, store, "--format", "json", "history", "stopwatch", "hard")
	require.NoError(t, err)
	assert.Len(t, decode[[]core.Record](t, out), 1)

	_, err = run(t, store, "clear", "stopwatch", "hard")
	require.NoError(t, err)
	out, err = run(t, store, "best", "stopwatch", "hard")
	require.NoError(t, err)
	assert.Equal(t, "Best: 0.75\n", out)

	_, err = run(t, store, "clear-best", "stopwatch", "hard")
	require.NoError(t, err)
	out, err = run(t, store, "best", "stopwatch", "hard")
	require.NoError(t, err)
	assert.Equal(t, "No best score yet\n", out)
}

func TestCleanResetInfo(t *testing.T) {
	store := filepath.Join(t.TempDir(), "scores.json")
	for _, s := range []string{"5", "4", "3", "2"} {
		_, err := run(t, store, "record", "reaction", "default", s)
		require.NoError(t, err)
	}

	_, err := run(t, store, "--cap", "2", "clean")
	require.NoError(t, err)
	out, err := run(t, store, "--format", "json", "history", "reaction", "default")
	require.NoError(t, err)
	assert.Len(t, decode[[]core.Record](t, out), 2)

	_, err = run(t, store, "clean", "reaction")
	assert.Error(t, err)

	out, err = run(t, store, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "reaction / default")

	_, err = run(t, store, "reset")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, store, "reset", "--yes")
	require.NoError(t, err)
	out, err = run(t, store, "--format", "json", "info")
	require.NoError(t, err)
	info := decode[struct {
		History struct {
			Keys int `json:"keys"`
		} `json:"history"`
	}](t, out)
	assert.Zero(t, info.History.Keys)
}

func TestLowerCapTrimsOnOpen(t *testing.T) {
	store := filepath.Join(t.TempDir(), "scores.json")
	for _, s := range []string{"9", "8", "7", "6", "5"} {
		_, err := run(t, store, "record", "mouse", "default", s)
		require.NoError(t, err)
	}

	_, err := run(t, store, "--cap", "2", "info")
	require.NoError(t, err)

	fs, err := jsonfile.New(store)
	require.NoError(t, err)
	raw, ok, err := fs.Get(context.Background(), core.Partition{Game: "mouse", Difficulty: "default"}.HistoryKey())
	require.NoError(t, err)
	require.True(t, ok)
	var stored []core.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, 5.0, stored[0].Score)
}

func TestOpenStoreFailure(t *testing.T) {
	store := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(store, []byte("{not json"), 0o600))

	_, err := run(t, store, "info")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
