package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/scrapeflow/internal/database"
	"github.com/nao1215/scrapeflow/internal/model"
	"github.com/nao1215/scrapeflow/internal/pipeline"
	"github.com/nao1215/scrapeflow/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrEmptyURL is returned when a run is requested without a URL.
var ErrEmptyURL = errors.New("empty URL")

// EmptyURLMessage is the message shown to users who submit no URL.
const EmptyURLMessage = "Please enter a valid URL."

const (
	// DefaultRunTimeout bounds one workflow run started from the UI or API.
	DefaultRunTimeout = 2 * time.Minute

	// shutdownTimeout is how long in-flight requests may take to finish
	// when the server stops.
	shutdownTimeout = 10 * time.Second

	// historyLimit is the number of runs returned by the history endpoint.
	historyLimit = 50
)

// Runner executes one workflow.
type Runner interface {
	Run(ctx context.Context, req model.WorkflowRequest, extra ...pipeline.Observer) *model.Run
}

// Store records runs and serves run history.
type Store interface {
	SaveRun(ctx context.Context, run *model.Run) (int64, error)
	GetRun(ctx context.Context, id int64) (*model.Run, error)
	History(ctx context.Context, url string, limit int) ([]database.RunMetadata, error)
	ListURLs(ctx context.Context) ([]string, error)
}

// Server is the web UI and API server.
type Server struct {
	runner     Runner
	store      Store
	metrics    *Metrics
	logger     *slog.Logger
	runTimeout time.Duration
	version    string
	engine     *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables run history.
func WithStore(store Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunTimeout sets the timeout of one run. Zero disables it.
func WithRunTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.runTimeout = timeout
	}
}

// WithVersion sets the version shown in the page footer.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a server that runs workflows with runner.
func New(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner:     runner,
		logger:     slog.Default(),
		runTimeout: DefaultRunTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}

	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"statusLabel": report.StatusLabel,
	}).ParseFS(templateFS, "templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.handleIndex)
	r.POST("/run", s.handleRunForm)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/ws/run", s.handleWebSocket)

	api := r.Group("/api")
	api.POST("/runs", s.handleCreateRun)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)

	return r
}

// requestLogger logs each request through slog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web UI listening", "address", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down web UI")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// execute runs the workflow for rawURL, records metrics and saves the run.
func (s *Server) execute(ctx context.Context, rawURL string, extra ...pipeline.Observer) (*model.Run, error) {
	req := model.NewWorkflowRequest(rawURL)
	if req.IsEmpty() {
		return nil, ErrEmptyURL
	}

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	s.metrics.RunsInFlight.Inc()
	defer s.metrics.RunsInFlight.Dec()

	observers := append([]pipeline.Observer{s.metrics}, extra...)
	run := s.runner.Run(ctx, req, observers...)
	s.metrics.RecordRun(run)

	s.logger.Info("workflow finished",
		"url", req.URL,
		"status", run.Status.String(),
		"duration", run.Duration(),
	)

	if s.store != nil {
		// A disconnected client must not drop the record of a finished run.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, err := s.store.SaveRun(saveCtx, run); err != nil {
			s.logger.Error("failed to save run", "url", req.URL, "error", err)
		}
	}

	return run, nil
}
