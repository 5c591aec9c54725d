// Package cli implements the scorekeeper command tree over a JSON-file store.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"scorekeeper/adapters/jsonfile"
	"scorekeeper/history"
)

// DefaultStorePath is where the CLI keeps scores unless --store says otherwise.
const DefaultStorePath = "./data/scores.json"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Store   string
	Policy  string // "recent" | "hybrid"
	Cap     int
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scorekeeper CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scorekeeper",
		Short: "Score history for the mini-games",
		Long:  "Record, query, export and maintain per-game score histories stored in a local JSON file.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Policy != history.PolicyRecent && opts.Policy != history.PolicyHybrid {
				return fmt.Errorf("invalid retention %q: must be recent or hybrid", opts.Policy)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", DefaultStorePath, "path of the JSON score store")
	cmd.PersistentFlags().StringVar(&opts.Policy, "retention", history.PolicyRecent, "retention policy (recent|hybrid)")
	cmd.PersistentFlags().IntVar(&opts.Cap, "cap", history.DefaultRetentionCap, "records kept per game and difficulty")

	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewPageCommand(opts))
	cmd.AddCommand(NewBestCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewClearBestCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewCleanCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))

	return cmd
}

// openManager opens the store named by --store and builds a manager over it.
// Diagnostics go to errOut only in verbose mode.
func openManager(ctx context.Context, opts *RootOptions, errOut io.Writer) (*history.Manager, error) {
	store, err := jsonfile.New(opts.Store)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	level := slog.LevelError
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	var policy history.Policy = history.RecentPolicy{Cap: opts.Cap}
	if opts.Policy == history.PolicyHybrid {
		policy = history.NewHybridPolicy(opts.Cap)
	}
	// one process, one command: nothing to gain from caching
	m := history.NewManager(store,
		history.WithRetention(policy),
		history.WithCacheTTL(0),
		history.WithLogger(log),
	)
	if err := m.CleanAllHistories(ctx); err != nil {
		log.Error("history sweep failed", "error", err)
	}
	return m, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
