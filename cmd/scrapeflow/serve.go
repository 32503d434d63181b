package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/scrapeflow/internal/config"
	"github.com/nao1215/scrapeflow/internal/database"
	"github.com/nao1215/scrapeflow/internal/log"
	"github.com/nao1215/scrapeflow/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long: `Serve starts a single page web UI for running workflows.

Enter a URL and press "Run Workflow" to fetch the page and read the report.
Step progress is streamed to the page while the workflow runs. The server
also exposes a JSON API under /api/runs and Prometheus metrics under /metrics.

Examples:
  # Serve on the default address
  scrapeflow serve

  # Listen on all interfaces
  scrapeflow serve --listen 0.0.0.0:8501`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch (0 disables it)")
	cmd.Flags().String("mode", config.DefaultMode,
		"Text extraction mode: text or article")
	cmd.Flags().String("proxy", "",
		"Use a SOCKS5 proxy at the specified address (e.g., 127.0.0.1:9050)")
	cmd.Flags().String("api-key", "",
		"OpenAI API key for narration (default: $"+config.APIKeyEnv+")")
	cmd.Flags().String("llm-model", config.DefaultLLMModel,
		"Chat model used for narration")
	cmd.Flags().Bool("no-save", false,
		"Do not save runs to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)
	logger := log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)

	cfg, err := buildServeConfig(cmd, logger)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	nw, err := setupNetwork(ctx, cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer nw.Close()

	orch, err := newOrchestrator(ctx, cfg, nw.client, logger)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithVersion(getVersion()),
	}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		opts = append(opts, server.WithStore(db))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "scrapeflow UI: http://%s\n", cfg.ListenAddress)
	return server.New(orch, opts...).ListenAndServe(ctx, cfg.ListenAddress)
}

// buildServeConfig creates a Config from the serve command flags.
func buildServeConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = getConfigFlag(cmd)

	var err error

	if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Mode, err = cmd.Flags().GetString("mode"); err != nil {
		return nil, err
	}
	if cfg.TorProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
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

	return cfg, nil
}
