package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/scrapeflow/internal/agent"
	"github.com/nao1215/scrapeflow/internal/model"
)

// Step names, as recorded in model.Run.PerformedSteps.
const (
	StepFetch   = "fetch"
	StepAnalyze = "analyze"
	StepWrite   = "write"
	StepNarrate = "narrate"
)

// PageFetcher downloads a page and extracts its text.
// Failures must be returned as *model.FetchError.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*model.PageContent, error)
}

// ContentAnalyzer derives an analysis from page text.
type ContentAnalyzer interface {
	Analyze(page *model.PageContent) *model.AnalysisResult
}

// ReportWriter produces the final report from the context variables.
type ReportWriter interface {
	Write(vars model.ContextVariables) *model.Report
}

// Narrator rewrites a finished report in prose.
type Narrator interface {
	// Narrate returns a narrative version of report.
	Narrate(ctx context.Context, report string) (string, error)

	// ModelName identifies the model producing the narrative.
	ModelName() string
}

// FetchStep downloads the requested page.
type FetchStep struct {
	fetcher PageFetcher
}

// NewFetchStep creates a fetch step.
func NewFetchStep(fetcher PageFetcher) *FetchStep {
	return &FetchStep{fetcher: fetcher}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return StepFetch
}

// AgentName returns the name of the agent performing the step.
func (s *FetchStep) AgentName() string {
	return agent.Scraper.Name
}

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, run *model.Run) error {
	page, err := s.fetcher.Fetch(ctx, run.Request.URL)
	if err != nil {
		return err
	}
	run.SetPage(page)
	return nil
}

// AnalyzeStep analyzes the fetched page.
type AnalyzeStep struct {
	analyzer ContentAnalyzer
}

// NewAnalyzeStep creates an analyze step.
func NewAnalyzeStep(analyzer ContentAnalyzer) *AnalyzeStep {
	return &AnalyzeStep{analyzer: analyzer}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return StepAnalyze
}

// AgentName returns the name of the agent performing the step.
func (s *AnalyzeStep) AgentName() string {
	return agent.Researcher.Name
}

// Do executes the analyze step.
func (s *AnalyzeStep) Do(_ context.Context, run *model.Run) error {
	run.SetAnalysis(s.analyzer.Analyze(run.Page))
	return nil
}

// WriteStep writes the report from the analysis.
type WriteStep struct {
	writer ReportWriter
}

// NewWriteStep creates a write step.
func NewWriteStep(writer ReportWriter) *WriteStep {
	return &WriteStep{writer: writer}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return StepWrite
}

// AgentName returns the name of the agent performing the step.
func (s *WriteStep) AgentName() string {
	return agent.Writer.Name
}

// Do executes the write step.
// The analysis is handed to the writer under model.AnalysisKey.
func (s *WriteStep) Do(_ context.Context, run *model.Run) error {
	vars := model.ContextVariables{}
	if run.Analysis != nil {
		vars[model.AnalysisKey] = run.Analysis.Summary
	}
	run.SetReport(s.writer.Write(vars))
	return nil
}

// NarrateStep attaches a language model narrative to the report.
// It never fails the run: narration errors are logged and dropped.
type NarrateStep struct {
	narrator Narrator
	logger   *slog.Logger
}

// NewNarrateStep creates a narrate step.
func NewNarrateStep(narrator Narrator, logger *slog.Logger) *NarrateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &NarrateStep{narrator: narrator, logger: logger}
}

// Name returns the step name.
func (s *NarrateStep) Name() string {
	return StepNarrate
}

// AgentName returns the name of the agent performing the step.
func (s *NarrateStep) AgentName() string {
	return agent.Writer.Name
}

// Do executes the narrate step.
func (s *NarrateStep) Do(ctx context.Context, run *model.Run) error {
	if run.Report == nil {
		return nil
	}

	narrative, err := s.narrator.Narrate(ctx, run.Report.Text)
	if err != nil {
		s.logger.Warn("narration failed",
			"url", run.Request.URL,
			"model", s.narrator.ModelName(),
			"error", err,
		)
		return nil
	}

	run.Report.Narrative = narrative
	run.Report.NarrativeModel = s.narrator.ModelName()
	return nil
}
