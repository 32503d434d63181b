package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/scrapeflow/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// Plain ASCII section rules keep the output readable when piped to a file.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections without content are shown.
	showEmpty bool

	// verbose adds the full page text to the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with the extracted page text.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one run in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeRun(&sb, run)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs a status overview followed by every run.
func (w *SimpleWriter) WriteBatch(runs []*model.Run) (int, error) {
	var sb strings.Builder

	w.writeBatchSummary(&sb, runs)
	for _, run := range runs {
		w.writeRun(&sb, run)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeRun(sb *strings.Builder, run *model.Run) {
	w.writeHeader(sb, run)
	w.writePage(sb, run)
	w.writeAnalysis(sb, run)
	w.writeOutput(sb, run)
	w.writeNarrative(sb, run)
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        SCRAPEFLOW REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("URL:            %s\n", run.Request.URL))
	if run.ID != 0 {
		sb.WriteString(fmt.Sprintf("Run ID:         %d\n", run.ID))
	}
	sb.WriteString(fmt.Sprintf("Run Date:       %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", run.Duration().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Status:         %s\n", StatusLabel(run.Status)))
	if len(run.PerformedSteps) > 0 {
		sb.WriteString(fmt.Sprintf("Steps:          %s\n", strings.Join(run.PerformedSteps, " -> ")))
	}

	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writePage writes the fetched page metadata.
func (w *SimpleWriter) writePage(sb *strings.Builder, run *model.Run) {
	page := run.Page
	if page == nil {
		if w.showEmpty {
			w.writeSection(sb, "PAGE")
			sb.WriteString("  Page was not fetched\n\n")
		}
		return
	}

	w.writeSection(sb, "PAGE")
	if page.FinalURL != "" && page.FinalURL != page.URL {
		sb.WriteString(fmt.Sprintf("  Final URL:    %s\n", page.FinalURL))
	}
	if page.Title != "" || w.showEmpty {
		sb.WriteString(fmt.Sprintf("  Title:        %s\n", page.Title))
	}
	if page.Description != "" || w.showEmpty {
		sb.WriteString(fmt.Sprintf("  Description:  %s\n", page.Description))
	}
	sb.WriteString(fmt.Sprintf("  HTTP Status:  %d\n", page.StatusCode))
	if page.ContentType != "" {
		sb.WriteString(fmt.Sprintf("  Content Type: %s\n", page.ContentType))
	}
	sb.WriteString(fmt.Sprintf("  Characters:   %d\n", page.Length()))
	sb.WriteString(fmt.Sprintf("  Links:        %d\n", page.LinkCount))
	sb.WriteString(fmt.Sprintf("  Content Hash: %s\n", page.Hash))

	if w.verbose {
		sb.WriteString("\n  Text:\n")
		for _, line := range strings.Split(strings.TrimSpace(page.Text), "\n") {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}

// writeAnalysis writes the analyzer output.
func (w *SimpleWriter) writeAnalysis(sb *strings.Builder, run *model.Run) {
	if run.Analysis == nil && !w.showEmpty {
		return
	}

	w.writeSection(sb, "ANALYSIS")
	if run.Analysis == nil {
		sb.WriteString("  No analysis\n\n")
		return
	}
	sb.WriteString(run.Analysis.Summary)
	sb.WriteString("\n\n")
}

// writeOutput writes the workflow output: the report or the fetch error.
func (w *SimpleWriter) writeOutput(sb *strings.Builder, run *model.Run) {
	if run.Failed() {
		w.writeSection(sb, "ERROR")
	} else {
		w.writeSection(sb, "REPORT")
	}
	sb.WriteString(run.Output())
	sb.WriteString("\n\n")
}

// writeNarrative writes the language model narrative, if any.
func (w *SimpleWriter) writeNarrative(sb *strings.Builder, run *model.Run) {
	if run.Report == nil || run.Report.Narrative == "" {
		return
	}

	w.writeSection(sb, "NARRATIVE ("+run.Report.NarrativeModel+")")
	sb.WriteString(run.Report.Narrative)
	sb.WriteString("\n\n")
}

// writeBatchSummary writes one line per run.
func (w *SimpleWriter) writeBatchSummary(sb *strings.Builder, runs []*model.Run) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         BATCH SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	failed := 0
	for _, run := range runs {
		indicator := "+"
		if run.Failed() {
			indicator = "!"
			failed++
		}
		sb.WriteString(fmt.Sprintf("  [%s] %-16s %s\n", indicator, StatusLabel(run.Status), run.Request.URL))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL: %d runs, %d failed\n", len(runs), failed))
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by scrapeflow\n")
	sb.WriteString("https://github.com/nao1215/scrapeflow\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
