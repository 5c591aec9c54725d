package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scorekeeper/core"
	"scorekeeper/history"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <game> <difficulty> <record-id>",
		Short:         "Delete one record from history",
		Long:          "Delete one record from history. The best-score list is left as is.",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartitionOp(rootOpts, cmd, args, "delete record", func(m *history.Manager, g core.GameType, d core.Difficulty) error {
				return m.DeleteRecord(cmd.Context(), g, d, args[2])
			}, "Deleted "+args[2])
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear <game> <difficulty>",
		Short:         "Remove the history of a game at a difficulty",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartitionOp(rootOpts, cmd, args, "clear history", func(m *history.Manager, g core.GameType, d core.Difficulty) error {
				return m.ClearHistory(cmd.Context(), g, d)
			}, "History cleared")
		},
	}
}

// NewClearBestCommand creates the clear-best command.
func NewClearBestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear-best <game> <difficulty>",
		Short:         "Remove the best scores of a game at a difficulty",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartitionOp(rootOpts, cmd, args, "clear best scores", func(m *history.Manager, g core.GameType, d core.Difficulty) error {
				return m.ClearBestScores(cmd.Context(), g, d)
			}, "Best scores cleared")
		},
	}
}

func runPartitionOp(opts *RootOptions, cmd *cobra.Command, args []string, what string,
	op func(*history.Manager, core.GameType, core.Difficulty) error, done string) error {
	f := newFormatter(opts, cmd)
	m, err := openManager(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return f.Fail(err)
	}
	if err := op(m, core.GameType(args[0]), core.Difficulty(args[1])); err != nil {
		return f.Fail(classify(what, err))
	}
	return f.Success(map[string]any{"ok": true}, func(w io.Writer) { fmt.Fprintln(w, done) })
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <game> <difficulty>",
		Short: "Export history as CSV",
		Long: `Export the history of a game at a difficulty as CSV.

Without --output the file is written to the current directory as
<game>_<difficulty>_history.csv. Use --output - for stdout.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			m, err := openManager(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return f.Fail(err)
			}
			g, d := core.GameType(args[0]), core.Difficulty(args[1])
			if output == "-" {
				if err := m.ExportCSV(cmd.Context(), g, d, cmd.OutOrStdout()); err != nil {
					return f.Fail(classify("export", err))
				}
				return nil
			}
			path := output
			if path == "" {
				path = history.ExportFilename(g, d)
			}
			if err := exportToFile(cmd, m, g, d, path); err != nil {
				return f.Fail(err)
			}
			return f.Success(map[string]any{"path": path}, func(w io.Writer) {
				fmt.Fprintf(w, "Exported to %s\n", path)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file, - for stdout")
	return cmd
}

func exportToFile(cmd *cobra.Command, m *history.Manager, g core.GameType, d core.Difficulty, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WrapExitError(ExitFailure, "create export dir", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitFailure, "create export file", err)
	}
	if err := m.ExportCSV(cmd.Context(), g, d, file); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return classify("export", err)
	}
	if err := file.Close(); err != nil {
		return WrapExitError(ExitFailure, "write export file", err)
	}
	return nil
}

// NewCleanCommand creates the clean command.
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [<game> <difficulty>]",
		Short: "Re-apply the retention policy",
		Long: `Re-apply the retention policy to stored histories. With no arguments
every stored game and difficulty is cleaned.`,
		Args:          noneOrPartition,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return runPartitionOp(rootOpts, cmd, args, "clean history", func(m *history.Manager, g core.GameType, d core.Difficulty) error {
					return m.CleanHistory(cmd.Context(), g, d)
				}, "History cleaned")
			}
			f := newFormatter(rootOpts, cmd)
			m, err := openManager(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return f.Fail(err)
			}
			if err := m.CleanAllHistories(cmd.Context()); err != nil {
				return f.Fail(classify("clean histories", err))
			}
			return f.Success(map[string]any{"ok": true}, func(w io.Writer) { fmt.Fprintln(w, "All histories cleaned") })
		},
	}
	return cmd
}

func noneOrPartition(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return fmt.Errorf("clean takes both game and difficulty, or neither")
	}
	return nil
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:           "reset",
		Short:         "Remove every game's history, best scores and legacy records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if !yes {
				return f.Fail(NewExitError(ExitCommandError, "reset removes all scores; pass --yes to confirm"))
			}
			m, err := openManager(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return f.Fail(err)
			}
			if !m.ResetAllGames(cmd.Context()) {
				return f.Fail(NewExitError(ExitFailure, "reset did not complete; see log output"))
			}
			return f.Success(map[string]any{"ok": true}, func(w io.Writer) { fmt.Fprintln(w, "All games reset") })
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "info",
		Short:         "Show storage usage",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			m, err := openManager(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return f.Fail(err)
			}
			info := m.StorageInfo(cmd.Context())
			if info == nil {
				return f.Fail(NewExitError(ExitFailure, "could not scan storage"))
			}
			return f.Success(info, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tKEYS\tBYTES")
				fmt.Fprintf(tw, "history\t%d\t%d\n", info.History.Keys, info.History.Bytes)
				fmt.Fprintf(tw, "best\t%d\t%d\n", info.Best.Keys, info.Best.Bytes)
				fmt.Fprintf(tw, "legacy\t%d\t%d\n", info.Legacy.Keys, info.Legacy.Bytes)
				fmt.Fprintf(tw, "other\t%d\t%d\n", info.Other.Keys, info.Other.Bytes)
				fmt.Fprintf(tw, "total\t\t%d\n", info.TotalBytes)
				_ = tw.Flush()
				for _, p := range info.Partitions {
					fmt.Fprintf(w, "  %s / %s\n", p.Game, p.Difficulty)
				}
			})
		},
	}
}
