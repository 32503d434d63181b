package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/scrapeflow/internal/agent"
	"github.com/nao1215/scrapeflow/internal/model"
)

// Orchestrator runs the workflow for one request at a time.
// It holds no per-run state and can be shared between goroutines when its
// components can.
type Orchestrator struct {
	fetcher   PageFetcher
	analyzer  ContentAnalyzer
	writer    ReportWriter
	narrator  Narrator
	logger    *slog.Logger
	observers []Observer
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAnalyzer replaces the scripted analyzer.
func WithAnalyzer(a ContentAnalyzer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.analyzer = a
	}
}

// WithWriter replaces the scripted report writer.
func WithWriter(w ReportWriter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.writer = w
	}
}

// WithNarrator enables the narrate step.
func WithNarrator(n Narrator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.narrator = n
	}
}

// WithOrchestratorLogger sets the logger used by every run.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithRunObserver adds an observer notified for every run.
func WithRunObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// NewOrchestrator creates an Orchestrator that fetches pages with fetcher
// and uses the scripted research and writer agents.
func NewOrchestrator(fetcher PageFetcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		fetcher:   fetcher,
		analyzer:  agent.NewAnalyzer(),
		writer:    agent.NewReportWriter(),
		observers: make([]Observer, 0),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o
}

// Pipeline builds a fresh pipeline for one run.
// extra observers are notified in addition to the orchestrator's own.
func (o *Orchestrator) Pipeline(extra ...Observer) *Pipeline {
	opts := []Option{WithLogger(o.logger)}
	for _, obs := range o.observers {
		opts = append(opts, WithObserver(obs))
	}
	for _, obs := range extra {
		opts = append(opts, WithObserver(obs))
	}

	p := New(opts...)
	p.AddSteps(
		NewFetchStep(o.fetcher),
		NewAnalyzeStep(o.analyzer),
		NewWriteStep(o.writer),
	)
	if o.narrator != nil {
		p.AddStep(NewNarrateStep(o.narrator, o.logger))
	}
	return p
}

// Run executes the workflow for req and returns the finished run.
// The run output is the report text, or the fetch error text when the page
// could not be fetched. Run never returns nil.
func (o *Orchestrator) Run(ctx context.Context, req model.WorkflowRequest, extra ...Observer) *model.Run {
	run := model.NewRun(req)
	_ = o.Pipeline(extra...).Execute(ctx, run) //nolint:errcheck // Error is stored in run
	return run
}
