package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "scrapeflow"

	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of concurrent workflows when several
	// URLs are given.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies scrapeflow in HTTP requests.
	// The CLI appends the version.
	DefaultUserAgent = "scrapeflow"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultListenAddress is where the web UI listens.
	DefaultListenAddress = "127.0.0.1:8501"

	// DefaultMode is the text extraction mode.
	DefaultMode = "text"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultLLMModel is the chat model used for narration.
	DefaultLLMModel = "gpt-4o-mini"

	// DefaultLLMTimeout bounds one narration request.
	DefaultLLMTimeout = 60 * time.Second
)

// Config holds all configuration options for scrapeflow.
// It is populated from CLI flags and the configuration file and passed
// through the application explicitly.
type Config struct {
	// Targets is the list of URLs to run the workflow for.
	Targets []string

	// Timeout bounds each page fetch. Zero disables the timeout.
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Mode is the text extraction mode: "text" or "article".
	Mode string

	// CollapseWhitespace normalizes whitespace in the extracted text.
	CollapseWhitespace bool

	// BatchSize is the number of concurrent workflows.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .scrapeflow is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the contents of the configuration file.
	SiteConfigs *File

	// JSONReport selects the JSON report format.
	JSONReport bool

	// MarkdownReport selects the Markdown report format.
	MarkdownReport bool

	// RawOutput prints only the workflow output string.
	RawOutput bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// FailOnError makes the run command exit with an error when any
	// workflow failed to fetch its page.
	FailOnError bool

	// DBDir is the directory holding the run history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB stores every run in the history database.
	SaveToDB bool

	// TorProxyAddress is an external SOCKS5 proxy in "host:port" format.
	// Empty means direct connections.
	TorProxyAddress string

	// UseEmbeddedTor starts a private Tor daemon and routes requests
	// through it.
	UseEmbeddedTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap.
	TorStartupTimeout time.Duration

	// ListenAddress is the address of the web UI.
	ListenAddress string

	// APIKey enables language model narration when non-empty.
	APIKey string

	// LLMModel is the chat model used for narration.
	LLMModel string

	// LLMBaseURL overrides the OpenAI compatible API endpoint.
	LLMBaseURL string

	// LLMTimeout bounds one narration request.
	LLMTimeout time.Duration
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		UserAgent:         DefaultUserAgent,
		Mode:              DefaultMode,
		BatchSize:         DefaultBatchSize,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		TorStartupTimeout: DefaultTorStartupTimeout,
		ListenAddress:     DefaultListenAddress,
		LLMModel:          DefaultLLMModel,
		LLMTimeout:        DefaultLLMTimeout,
	}
}

// ApplyFile copies the file's language model settings into c where c
// still holds the defaults. Flags set on the command line win.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f
	if f.LLM.Model != "" && c.LLMModel == DefaultLLMModel {
		c.LLMModel = f.LLM.Model
	}
	if f.LLM.BaseURL != "" && c.LLMBaseURL == "" {
		c.LLMBaseURL = f.LLM.BaseURL
	}
}

// NarrationEnabled reports whether an API key is configured.
func (c *Config) NarrationEnabled() bool {
	return c.APIKey != ""
}

// XDGDataDir returns the XDG data directory for scrapeflow.
// On Linux: ~/.local/share/scrapeflow
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for scrapeflow.
// On Linux: ~/.config/scrapeflow
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options shared by every command.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if !validMode(c.Mode) {
		return ErrInvalidMode
	}

	formats := 0
	for _, set := range []bool{c.JSONReport, c.MarkdownReport, c.RawOutput} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	if c.TorProxyAddress != "" && c.UseEmbeddedTor {
		return ErrConflictingProxy
	}

	return nil
}

// ValidateRun checks the options of the run command.
func (c *Config) ValidateRun() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}

// ValidateServe checks the options of the serve command.
func (c *Config) ValidateServe() error {
	if c.ListenAddress == "" {
		return ErrEmptyListenAddress
	}
	return c.Validate()
}

func validMode(mode string) bool {
	return mode == "" || mode == "text" || mode == "article"
}
