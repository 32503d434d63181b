package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/scrapeflow/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step reading the artifacts
// recorded on the run by the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// An error ends the run; the pipeline records it on the run.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Phase is the stage of a step reported to observers.
type Phase string

const (
	// PhaseStarted is reported before a step runs.
	PhaseStarted Phase = "started"

	// PhaseCompleted is reported after a step succeeds.
	PhaseCompleted Phase = "completed"

	// PhaseFailed is reported after a step returns an error.
	PhaseFailed Phase = "failed"
)

// StepEvent describes the progress of one step of one run.
type StepEvent struct {
	// URL is the request URL of the run.
	URL string `json:"url"`

	// Step is the step name.
	Step string `json:"step"`

	// Agent is the display name of the agent performing the step.
	Agent string `json:"agent,omitempty"`

	// Phase is the stage of the step.
	Phase Phase `json:"phase"`

	// Elapsed is the step duration. Zero for PhaseStarted.
	Elapsed time.Duration `json:"elapsed_ns"`

	// Error is the failure message for PhaseFailed.
	Error string `json:"error,omitempty"`
}

// Observer receives step events.
// Events of one run are delivered sequentially from the goroutine that
// executes the run.
type Observer interface {
	OnStep(event StepEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event StepEvent)

// OnStep calls f(event).
func (f ObserverFunc) OnStep(event StepEvent) {
	f(event)
}

// agentStep is implemented by steps that are performed by a named agent.
type agentStep interface {
	AgentName() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// observers are notified of step progress.
	observers []Observer
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithObserver adds an observer of step events.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:     make([]Step, 0),
		observers: make([]Observer, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// Cancellation is checked before each step; a cancelled run is marked
// model.StatusCancelled. The first step error stops the pipeline, is
// recorded on the run with run.Fail and is returned.
// Cancellation after the run reached model.StatusDone skips the remaining
// steps and keeps the report.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	for _, step := range p.steps {
		if run.Status == model.StatusDone && ctx.Err() != nil {
			p.logger.Debug("context ended after the report was written",
				"step", step.Name(),
				"url", run.Request.URL,
			)
			return nil
		}

		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"url", run.Request.URL,
				"reason", ctx.Err(),
			)
			run.Fail(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"url", run.Request.URL,
		)
		p.notify(run, step, PhaseStarted, 0, nil)

		start := time.Now()
		if err := step.Do(ctx, run); err != nil {
			elapsed := time.Since(start)
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", run.Request.URL,
				"error", err,
			)
			run.Fail(err)
			p.notify(run, step, PhaseFailed, elapsed, err)
			return err
		}

		elapsed := time.Since(start)
		p.logger.Debug("step completed",
			"step", step.Name(),
			"url", run.Request.URL,
			"elapsed", elapsed,
		)
		run.MarkStep(step.Name())
		p.notify(run, step, PhaseCompleted, elapsed, nil)
	}

	return nil
}

func (p *Pipeline) notify(run *model.Run, step Step, phase Phase, elapsed time.Duration, err error) {
	if len(p.observers) == 0 {
		return
	}

	event := StepEvent{
		URL:     run.Request.URL,
		Step:    step.Name(),
		Phase:   phase,
		Elapsed: elapsed,
	}
	if a, ok := step.(agentStep); ok {
		event.Agent = a.AgentName()
	}
	if err != nil {
		event.Error = err.Error()
	}

	for _, o := range p.observers {
		o.OnStep(event)
	}
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
