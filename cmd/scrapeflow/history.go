package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/nao1215/scrapeflow/internal/config"
	"github.com/nao1215/scrapeflow/internal/database"
	"github.com/nao1215/scrapeflow/internal/model"
	"github.com/nao1215/scrapeflow/internal/report"
)

// ErrRunNotFound is returned when --id names no stored run.
var ErrRunNotFound = errors.New("run not found")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show saved workflow runs",
		Long: `History shows the runs saved by 'scrapeflow run' and 'scrapeflow serve'.

Without arguments, it lists every URL that has saved runs. With a URL, it
lists the runs of that URL, newest first. Use --id to print one stored run.

Examples:
  # List URLs with saved runs
  scrapeflow history

  # List runs of a page
  scrapeflow history https://example.com

  # Show one run as Markdown
  scrapeflow history --id 12 -m`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("id", "i", 0,
		"Show the run with this ID")
	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Reading history never creates the database.
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if errors.Is(err, database.ErrNotFound) {
		printNoRuns(cmd.OutOrStdout())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case id > 0:
		return showRun(ctx, db, cfg, out, id)
	case len(args) == 1:
		return listRuns(ctx, db, out, model.NewWorkflowRequest(args[0]).URL, limit)
	default:
		return listURLs(ctx, db, out)
	}
}

// listURLs prints every URL that has saved runs.
func listURLs(ctx context.Context, db *database.RunDB, out io.Writer) error {
	urls, err := db.ListURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list URLs: %w", err)
	}

	if len(urls) == 0 {
		printNoRuns(out)
		return nil
	}

	fmt.Fprintf(out, "URLs with saved runs (%d):\n\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  • %s\n", u)
	}
	fmt.Fprintln(out, "\nUse 'scrapeflow history <url>' to see the runs of a URL.")
	return nil
}

func printNoRuns(out io.Writer) {
	fmt.Fprintln(out, "No saved runs found.")
	fmt.Fprintln(out, "\nUse 'scrapeflow run <url>' to run a workflow.")
}

// listRuns prints the run history of url as a table.
func listRuns(ctx context.Context, db *database.RunDB, out io.Writer, url string, limit int) error {
	runs, err := db.History(ctx, url, limit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No saved runs found for %s\n", url)
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", url, len(runs))

	table := newHistoryTable(out)
	table.Header([]string{"ID", "Date", "Status", "Duration", "Title", "Hash"})
	rows := make([][]string, 0, len(runs))
	for _, meta := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(meta.ID, 10),
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			colorStatus(meta.Status),
			meta.Duration.Round(time.Millisecond).String(),
			meta.Title,
			shortHash(meta.ContentHash),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}

	fmt.Fprintln(out, "\nUse 'scrapeflow history --id <id>' to show a run.")
	return nil
}

// showRun prints one stored run with the report writers.
func showRun(ctx context.Context, db *database.RunDB, cfg *config.Config, out io.Writer, id int64) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}

	if _, err := newReportWriter(cfg, out).Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// newHistoryTable creates a borderless, left aligned table.
func newHistoryTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
		}),
	)
}

// colorStatus renders the status label green when the run completed and
// red when it failed.
func colorStatus(s model.Status) string {
	label := report.StatusLabel(s)
	switch s {
	case model.StatusDone:
		return color.GreenString(label)
	case model.StatusFailedAtFetch, model.StatusFailed:
		return color.RedString(label)
	case model.StatusCancelled:
		return color.YellowString(label)
	default:
		return label
	}
}

// shortHash abbreviates a content hash for display.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
