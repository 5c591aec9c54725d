package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scorekeeper/core"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Moves      int
	TimeSpent  int64
	Incomplete bool
	Extra      []string
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record <game> <difficulty> <score>",
		Short: "Record one play",
		Long: `Record one play of a game at a difficulty. Lower scores are better.

Example:
  scorekeeper record reaction default 231 --time 231 --extra attempts=5`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Moves, "moves", 0, "moves used")
	cmd.Flags().Int64Var(&opts.TimeSpent, "time", 0, "time spent in milliseconds")
	cmd.Flags().BoolVar(&opts.Incomplete, "incomplete", false, "the play was abandoned")
	cmd.Flags().StringArrayVar(&opts.Extra, "extra", nil, "extra field key=value (value parsed as JSON when possible)")

	return cmd
}

func runRecord(opts *RecordOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	score, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "invalid score", err))
	}
	extra, err := parseExtra(opts.Extra)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "invalid --extra", err))
	}

	m, err := openManager(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return f.Fail(err)
	}
	data := core.ScoreData{
		Score:     score,
		Moves:     opts.Moves,
		TimeSpent: opts.TimeSpent,
		Completed: core.Bool(!opts.Incomplete),
		Extra:     extra,
	}
	rec, err := m.RecordScore(cmd.Context(), core.GameType(args[0]), core.Difficulty(args[1]), data)
	if err != nil {
		return f.Fail(classify("record score", err))
	}
	f.VerboseLog("stored %s in %s", rec.ID, opts.Store)

	return f.Success(rec, func(w io.Writer) {
		fmt.Fprintf(w, "Recorded %s: score %s", rec.ID, formatScore(rec.Score))
		if rec.BestScore {
			fmt.Fprint(w, " (new best)")
		}
		fmt.Fprintln(w)
	})
}

func parseExtra(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		var val any
		if err := json.Unmarshal([]byte(v), &val); err != nil {
			val = v
		}
		out[k] = val
	}
	return out, nil
}

func formatScore(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
