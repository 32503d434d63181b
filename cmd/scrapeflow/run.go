package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/scrapeflow/internal/config"
	"github.com/nao1215/scrapeflow/internal/database"
	"github.com/nao1215/scrapeflow/internal/log"
	"github.com/nao1215/scrapeflow/internal/model"
	"github.com/nao1215/scrapeflow/internal/pipeline"
	"github.com/nao1215/scrapeflow/internal/report"
	"github.com/nao1215/scrapeflow/internal/tor"
)

// ErrRunsFailed is returned with --fail-on-error when a workflow failed.
var ErrRunsFailed = errors.New("one or more workflows failed")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [url...]",
		Short: "Run the scrape, analyze and write workflow for web pages",
		Long: `Run fetches each page, summarizes its visible text and writes a report.

When the page cannot be fetched, the error message is the output of the
workflow and the remaining steps are skipped. Every run is saved to the
history database so that the next run can report whether the page changed.

Examples:
  # Run the workflow for a single page
  scrapeflow run https://example.com

  # Run several pages, four at a time
  scrapeflow run -b 4 https://example.com https://example.org

  # Print only the final report string
  scrapeflow run --raw https://example.com

  # Extract the main article instead of all visible text
  scrapeflow run --mode article https://blog.example.com/post

  # Fetch an onion service through an embedded Tor daemon
  scrapeflow run --tor http://exampleonion.onion

  # Write a Markdown report
  scrapeflow run -m -o report.md https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	// Fetch flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch (0 disables it)")
	cmd.Flags().String("mode", config.DefaultMode,
		"Text extraction mode: text or article")
	cmd.Flags().Bool("collapse", false,
		"Collapse whitespace in the extracted text")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: scrapeflow/<version>)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent workflows")

	// Network flags
	cmd.Flags().String("proxy", "",
		"Use a SOCKS5 proxy at the specified address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and fetch through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Narration flags
	cmd.Flags().String("api-key", "",
		"OpenAI API key for narration (default: $"+config.APIKeyEnv+")")
	cmd.Flags().String("llm-model", config.DefaultLLMModel,
		"Chat model used for narration")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report")
	cmd.Flags().Bool("raw", false,
		"Output only the workflow result string")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("fail-on-error", false,
		"Exit with an error when any page could not be fetched")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not save runs to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	slog.SetDefault(logger)

	cfg, err := buildRunConfig(cmd, args, logger)
	if err != nil {
		return err
	}

	if err := cfg.ValidateRun(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runWorkflows(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildRunConfig creates a Config from cobra command flags.
func buildRunConfig(cmd *cobra.Command, args []string, logger *slog.Logger) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = getConfigFlag(cmd)

	var err error

	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Mode, err = cmd.Flags().GetString("mode"); err != nil {
		return nil, err
	}
	if cfg.CollapseWhitespace, err = cmd.Flags().GetBool("collapse"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}

	ua, err := cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	if ua != "" {
		cfg.UserAgent = ua
	}

	if cfg.TorProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseEmbeddedTor, err = cmd.Flags().GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	apiKey, err := cmd.Flags().GetString("api-key")
	if err != nil {
		return nil, err
	}
	cfg.APIKey = resolveAPIKey(apiKey, logger)
	if cfg.LLMModel, err = cmd.Flags().GetString("llm-model"); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.RawOutput, err = cmd.Flags().GetBool("raw"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.FailOnError, err = cmd.Flags().GetBool("fail-on-error"); err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Targets = args

	return cfg, nil
}

// runWorkflows runs the workflow for every target and writes the report.
// Reports go to stdout or the report file; progress goes to status.
func runWorkflows(ctx context.Context, cfg *config.Config, stdout, status io.Writer, logger *slog.Logger) error {
	logger.Info("starting workflows",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
		"narration", cfg.NarrationEnabled(),
	)

	if tor.AnyOnion(cfg.Targets) && cfg.TorProxyAddress == "" && !cfg.UseEmbeddedTor {
		color.New(color.FgYellow).Fprintln(status,
			"Warning: .onion addresses need Tor. Use --tor or --proxy to reach them.")
	}

	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	nw, err := setupNetwork(ctx, cfg, status, logger)
	if err != nil {
		return err
	}
	defer nw.Close()

	orch, err := newOrchestrator(ctx, cfg, nw.client, logger)
	if err != nil {
		return err
	}

	recorder := &runRecorder{db: db, status: status, logger: logger}

	var runs []*model.Run
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		runs, err = runBatch(ctx, cfg, orch, recorder, status, logger)
	} else {
		runs, err = runSequential(ctx, cfg, orch, recorder)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if werr := outputReport(cfg, stdout, runs); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}

	if cfg.FailOnError {
		for _, run := range runs {
			if run.Failed() {
				return ErrRunsFailed
			}
		}
	}
	return nil
}

// runSequential runs the targets one at a time.
func runSequential(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, rec *runRecorder) ([]*model.Run, error) {
	runs := make([]*model.Run, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return runs, ctx.Err()
		default:
		}

		run := orch.Run(ctx, model.NewWorkflowRequest(target))
		rec.record(ctx, run)
		runs = append(runs, run)
	}
	return runs, nil
}

// runBatch runs the targets concurrently using BatchProcessor.
func runBatch(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, rec *runRecorder, status io.Writer, logger *slog.Logger) ([]*model.Run, error) {
	fmt.Fprintf(status, "Starting %d workflows (concurrency: %d)...\n\n", len(cfg.Targets), cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline { return orch.Pipeline() },
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	runs := make([]*model.Run, len(cfg.Targets))
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(status, "[%d/%d] %s: %s\n", index+1, len(cfg.Targets), run.Request.URL, report.StatusLabel(run.Status))
		rec.record(ctx, run)
		runs[index] = run
	})

	fmt.Fprintf(status, "\nWorkflows completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	completed := make([]*model.Run, 0, len(runs))
	for _, run := range runs {
		if run != nil {
			completed = append(completed, run)
		}
	}
	return completed, err
}

// runRecorder saves runs and reports content changes.
// A nil db disables both.
type runRecorder struct {
	db     *database.RunDB
	status io.Writer
	logger *slog.Logger
}

// contentChange describes how a page relates to its previous run.
type contentChange int

const (
	changeUnknown contentChange = iota
	changeFirstRun
	changeUnchanged
	changeChanged
)

// record saves run and prints whether its page changed since the last
// saved run of the same URL.
func (r *runRecorder) record(ctx context.Context, run *model.Run) {
	if r.db == nil {
		return
	}

	// Saving after an interrupt keeps the record of a finished run.
	ctx = context.WithoutCancel(ctx)

	change := r.compare(ctx, run)

	id, err := r.db.SaveRun(ctx, run)
	if err != nil {
		r.logger.Error("failed to save run", "url", run.Request.URL, "error", err)
		return
	}
	r.logger.Debug("run saved to database", "url", run.Request.URL, "id", id)

	switch change {
	case changeFirstRun:
		fmt.Fprintf(r.status, "%s: first run, content recorded\n", run.Request.URL)
	case changeUnchanged:
		fmt.Fprintf(r.status, "%s: content unchanged since last run\n", run.Request.URL)
	case changeChanged:
		color.New(color.FgCyan).Fprintf(r.status, "%s: content changed since last run\n", run.Request.URL)
	case changeUnknown:
	}
}

// compare checks run against the last content hash stored for its URL.
func (r *runRecorder) compare(ctx context.Context, run *model.Run) contentChange {
	if run.Page == nil || run.Page.Hash == "" {
		return changeUnknown
	}

	prev, err := r.db.LatestContentHash(ctx, run.Request.URL)
	if err != nil {
		r.logger.Warn("failed to read previous content hash", "url", run.Request.URL, "error", err)
		return changeUnknown
	}

	switch {
	case prev == "":
		return changeFirstRun
	case prev == run.Page.Hash:
		return changeUnchanged
	default:
		return changeChanged
	}
}

// outputReport writes the runs in the requested format.
func outputReport(cfg *config.Config, stdout io.Writer, runs []*model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Page text may contain private content.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer := newReportWriter(cfg, output)

	var err error
	if len(runs) == 1 {
		_, err = writer.Write(runs[0])
	} else {
		_, err = writer.WriteBatch(runs)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// newReportWriter selects the report writer for the configured format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	case cfg.RawOutput:
		return report.NewRawWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}
