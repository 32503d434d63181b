package agent

import (
	"github.com/nao1215/scrapeflow/internal/model"
)

// ReportPrefix starts every report.
const ReportPrefix = "Here's a detailed report based on the research: "

// WriteSummary returns the report for the analysis stored under
// model.AnalysisKey. A missing analysis reads as the empty string.
func WriteSummary(vars model.ContextVariables) string {
	return ReportPrefix + vars.Get(model.AnalysisKey, "")
}

// ReportWriter is the writing step.
type ReportWriter struct{}

// NewReportWriter returns the scripted writer.
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write produces the report from the context variables.
func (w *ReportWriter) Write(vars model.ContextVariables) *model.Report {
	return &model.Report{Text: WriteSummary(vars)}
}
