package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/scrapeflow/internal/config"
	"github.com/nao1215/scrapeflow/internal/fetcher"
	"github.com/nao1215/scrapeflow/internal/llm"
	"github.com/nao1215/scrapeflow/internal/pipeline"
	"github.com/nao1215/scrapeflow/internal/tor"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config file path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// loadConfigFile reads the configuration file into cfg.
// A missing file is an error only when the user named one explicitly.
// An explicit --mode flag replaces defaults.mode from the file; per-site
// modes are kept.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case cfg.ConfigFilePath != "":
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.ApplyFile(&config.File{Sites: make(map[string]config.SiteConfig)})
	}

	if cmd.Flags().Changed("mode") && cfg.SiteConfigs != nil {
		cfg.SiteConfigs.Defaults.Mode = ""
	}
	return nil
}

// resolveAPIKey loads .env from the working directory and returns the
// narration API key. The flag wins over the environment.
func resolveAPIKey(flagValue string, logger *slog.Logger) string {
	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}
	return config.ResolveAPIKey(flagValue, os.Getenv)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// siteResolver exposes the configuration file to the fetcher.
type siteResolver struct {
	file *config.File
}

// SiteSettings implements fetcher.SiteResolver.
func (r siteResolver) SiteSettings(host string) (fetcher.SiteSettings, bool) {
	if r.file == nil {
		return fetcher.SiteSettings{}, false
	}

	sc := r.file.GetSiteConfig(host)
	if sc.IsZero() {
		return fetcher.SiteSettings{}, false
	}

	settings := fetcher.SiteSettings{
		Headers:   sc.Headers,
		Cookie:    sc.Cookie,
		UserAgent: sc.UserAgent,
	}
	if sc.Mode != "" {
		// The loader already rejected unknown modes.
		mode, err := fetcher.ParseMode(sc.Mode)
		if err == nil {
			settings.Mode = mode
		}
	}
	return settings, true
}

// network holds the HTTP client used for fetching and the resources it
// depends on.
type network struct {
	client   *http.Client
	embedded *tor.EmbeddedTor
	logger   *slog.Logger
}

// Close stops the embedded Tor daemon, if one was started.
func (n *network) Close() {
	if n.embedded == nil {
		return
	}
	n.logger.Info("stopping embedded Tor daemon...")
	if err := n.embedded.Stop(); err != nil {
		n.logger.Error("failed to stop embedded Tor", "error", err)
	}
}

// setupNetwork builds the HTTP client according to the network options.
// Without --proxy or --tor the client connects directly.
func setupNetwork(ctx context.Context, cfg *config.Config, status io.Writer, logger *slog.Logger) (*network, error) {
	n := &network{logger: logger}

	switch {
	case cfg.TorProxyAddress != "":
		client, err := tor.NewClient(cfg.TorProxyAddress,
			tor.WithTimeout(cfg.Timeout),
			tor.WithInsecureOnion(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy client: %w", err)
		}
		if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
			return nil, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				st.Error(), cfg.TorProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.TorProxyAddress)
		n.client = client.NewHTTPClient()

	case cfg.UseEmbeddedTor:
		client, embedded, err := startEmbeddedTor(ctx, cfg, status, logger)
		if err != nil {
			return nil, err
		}
		n.embedded = embedded
		n.client = client.NewHTTPClient()

	default:
		n.client = &http.Client{Timeout: cfg.Timeout}
	}

	return n, nil
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, status io.Writer, logger *slog.Logger) (*tor.Client, *tor.EmbeddedTor, error) {
	fmt.Fprintln(status, "Starting embedded Tor daemon...")
	fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
		tor.WithLogger(logger),
	)

	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embeddedTor.SocksAddr(),
		"controlAddr", embeddedTor.ControlAddr(),
	)
	fmt.Fprintf(status, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	client, err := embeddedTor.NewClient(tor.WithTimeout(cfg.Timeout))
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", st.Error())
	}

	return client, embeddedTor, nil
}

// newFetcher creates the page fetcher from the configuration.
func newFetcher(cfg *config.Config, client *http.Client, logger *slog.Logger) (*fetcher.Fetcher, error) {
	mode, err := fetcher.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	ua := cfg.UserAgent
	if ua == "" || ua == config.DefaultUserAgent {
		ua = userAgent()
	}

	return fetcher.New(client,
		fetcher.WithUserAgent(ua),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithCollapseWhitespace(cfg.CollapseWhitespace),
		fetcher.WithMode(mode),
		fetcher.WithSiteResolver(siteResolver{file: cfg.SiteConfigs}),
		fetcher.WithLogger(logger),
	), nil
}

// newOrchestrator wires the fetcher, the agents and the optional narrator.
func newOrchestrator(ctx context.Context, cfg *config.Config, client *http.Client, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	f, err := newFetcher(cfg, client, logger)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.OrchestratorOption{
		pipeline.WithOrchestratorLogger(logger),
	}

	if cfg.NarrationEnabled() {
		narrator, err := llm.NewNarrator(ctx, llm.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.LLMBaseURL,
			Timeout: cfg.LLMTimeout,
		}, llm.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create narrator: %w", err)
		}
		opts = append(opts, pipeline.WithNarrator(narrator))
		logger.Debug("narration enabled", "model", narrator.ModelName())
	}

	return pipeline.NewOrchestrator(f, opts...), nil
}
