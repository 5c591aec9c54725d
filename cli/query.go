package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"scorekeeper/core"
	"scorekeeper/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:           "history <game> <difficulty>",
		Short:         "List recorded plays, newest first",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			m, err := openManager(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return f.Fail(err)
			}
			records, err := m.GetHistory(cmd.Context(), core.GameType(args[0]), core.Difficulty(args[1]))
			if err != nil {
				return f.Fail(classify("read history", err))
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			return f.Success(records, func(w io.Writer) { writeRecords(w, records) })
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n records")
	return cmd
}

// PageOptions holds flags for the page command.
type PageOptions struct {
	*RootOptions
	Page      int
	Size      int
	SortBy    string
	Order     string
	Completed string
	From      string
	To        string
	Min       string
	Max       string
}

// NewPageCommand creates the page command.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "page <game> <difficulty>",
		Short: "Show one filtered, sorted page of history",
		Long: `Show one page of history. Filters combine with AND.

Example:
  scorekeeper page puzzle easy --sort score --order asc --completed true --size 5`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPage(opts, args, cmd)
		},
	}
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number, clamped into range")
	cmd.Flags().IntVar(&opts.Size, "size", history.DefaultPageSize, "records per page")
	cmd.Flags().StringVar(&opts.SortBy, "sort", string(history.SortByDate), "sort field (score|moves|timeSpent|date)")
	cmd.Flags().StringVar(&opts.Order, "order", string(history.SortDesc), "sort order (asc|desc)")
	cmd.Flags().StringVar(&opts.Completed, "completed", "", "only completed (true) or abandoned (false) plays")
	cmd.Flags().StringVar(&opts.From, "from", "", "earliest date, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.To, "to", "", "latest date, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.Min, "min", "", "minimum score")
	cmd.Flags().StringVar(&opts.Max, "max", "", "maximum score")
	return cmd
}

func runPage(opts *PageOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	req, err := opts.request()
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "invalid filter", err))
	}
	m, err := openManager(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return f.Fail(err)
	}
	page, err := m.GetHistoryPage(cmd.Context(), core.GameType(args[0]), core.Difficulty(args[1]), req)
	if err != nil {
		return f.Fail(classify("read page", err))
	}
	return f.Success(page, func(w io.Writer) {
		writeRecords(w, page.Records)
		fmt.Fprintf(w, "Page %d of %d (%d records)\n", page.CurrentPage, page.TotalPages, page.Total)
	})
}

func (o *PageOptions) request() (history.PageRequest, error) {
	req := history.PageRequest{
		Page:      o.Page,
		PageSize:  o.Size,
		SortBy:    history.SortField(o.SortBy),
		SortOrder: history.SortOrder(o.Order),
	}
	if o.Completed != "" {
		b, err := strconv.ParseBool(o.Completed)
		if err != nil {
			return req, fmt.Errorf("--completed: %w", err)
		}
		req.Filters.Completed = &b
	}
	var err error
	if req.Filters.DateRange.Start, err = parseDate(o.From, false); err != nil {
		return req, fmt.Errorf("--from: %w", err)
	}
	if req.Filters.DateRange.End, err = parseDate(o.To, true); err != nil {
		return req, fmt.Errorf("--to: %w", err)
	}
	if req.Filters.ScoreRange.Min, err = parseOptFloat(o.Min); err != nil {
		return req, fmt.Errorf("--min: %w", err)
	}
	if req.Filters.ScoreRange.Max, err = parseOptFloat(o.Max); err != nil {
		return req, fmt.Errorf("--max: %w", err)
	}
	return req, nil
}

// parseDate accepts RFC 3339 or a bare UTC day; a bare end day covers the whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// NewBestCommand creates the best command.
func NewBestCommand(rootOpts *RootOptions) *cobra.Command {
	var compatible, list bool
	cmd := &cobra.Command{
		Use:   "best <game> <difficulty>",
		Short: "Show the best score",
		Long: `Show the best (lowest) score of a game at a difficulty.

With --compatible a legacy per-game record is migrated into the history
when no structured best exists yet. With --list the whole top-N is shown.`,
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
			if list {
				records, err := m.GetBestScores(cmd.Context(), g, d)
				if err != nil {
					return f.Fail(classify("read best scores", err))
				}
				return f.Success(records, func(w io.Writer) { writeRecords(w, records) })
			}
			get := m.GetBestScore
			if compatible {
				get = m.GetBestScoreCompatible
			}
			score, found, err := get(cmd.Context(), g, d)
			if err != nil {
				return f.Fail(classify("read best score", err))
			}
			data := map[string]any{"found": found, "score": nil}
			if found {
				data["score"] = score
			}
			return f.Success(data, func(w io.Writer) {
				if !found {
					fmt.Fprintln(w, "No best score yet")
					return
				}
				fmt.Fprintf(w, "Best: %s\n", formatScore(score))
			})
		},
	}
	cmd.Flags().BoolVar(&compatible, "compatible", false, "fall back to and migrate the legacy record")
	cmd.Flags().BoolVar(&list, "list", false, "list the best-score records")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats <game> <difficulty>",
		Short:         "Summarise the history of a game at a difficulty",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			m, err := openManager(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return f.Fail(err)
			}
			st, err := m.GetGameStats(cmd.Context(), core.GameType(args[0]), core.Difficulty(args[1]))
			if err != nil {
				return f.Fail(classify("compute stats", err))
			}
			return f.Success(st, func(w io.Writer) { writeStats(w, st) })
		},
	}
}

func writeRecords(w io.Writer, records []core.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSCORE\tMOVES\tTIME(ms)\tCOMPLETED\tBEST")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%t\t%t\n",
			r.ID, r.Date.Format(time.DateTime), formatScore(r.Score), r.Moves, r.TimeSpent, r.Completed, r.BestScore)
	}
	_ = tw.Flush()
}

func writeStats(w io.Writer, st history.Stats) {
	opt := func(p *float64) string {
		if p == nil {
			return "-"
		}
		return formatScore(*p)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Games\t%d\n", st.TotalGames)
	fmt.Fprintf(tw, "Completed\t%d\n", st.CompletedGames)
	fmt.Fprintf(tw, "Best\t%s\n", opt(st.BestScore))
	fmt.Fprintf(tw, "Worst\t%s\n", opt(st.WorstScore))
	fmt.Fprintf(tw, "Average\t%s\n", opt(st.AverageScore))
	fmt.Fprintf(tw, "Average time (ms)\t%s\n", opt(st.AverageTime))
	fmt.Fprintf(tw, "Average moves\t%s\n", opt(st.AverageMoves))
	fmt.Fprintf(tw, "Last 5 average\t%s\n", opt(st.Recent5Avg))
	fmt.Fprintf(tw, "Last 10 average\t%s\n", opt(st.Recent10Avg))
	_ = tw.Flush()
}
