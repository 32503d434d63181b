package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/scrapeflow/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scrapeflow Report")
	md.PlainText("")
	w.writeRun(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs an overview table and a section per run.
func (w *MarkdownWriter) WriteBatch(runs []*model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scrapeflow Batch Report")
	md.PlainText("")
	w.writeOverview(md, runs)

	for _, run := range runs {
		md.H2(run.Request.URL)
		md.PlainText("")
		w.writeRun(md, run)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeRun(md *markdown.Markdown, run *model.Run) {
	w.writeHeader(md, run)
	w.writeAlert(md, run)
	w.writeSections(md, run)
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	rows := [][]string{
		{"URL", "`" + run.Request.URL + "`"},
		{"Run Date", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Status", w.getStatusText(run)},
	}
	if run.Page != nil {
		rows = append(rows,
			[]string{"Title", run.Page.Title},
			[]string{"HTTP Status", strconv.Itoa(run.Page.StatusCode)},
			[]string{"Characters", strconv.Itoa(run.Page.Length())},
			[]string{"Links", strconv.Itoa(run.Page.LinkCount)},
			[]string{"Content Hash", "`" + run.Page.Hash + "`"},
		)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text with an indicator.
func (w *MarkdownWriter) getStatusText(run *model.Run) string {
	switch run.Status {
	case model.StatusDone:
		return "✅ " + StatusLabel(run.Status)
	case model.StatusFailedAtFetch, model.StatusFailed:
		return "❌ " + StatusLabel(run.Status)
	case model.StatusCancelled:
		return "⚠️ " + StatusLabel(run.Status)
	default:
		return StatusLabel(run.Status)
	}
}

// writeAlert writes an alert for runs that did not finish.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run) {
	switch run.Status {
	case model.StatusFailedAtFetch:
		md.Cautionf("The page could not be fetched: %s", run.Output())
	case model.StatusFailed:
		md.Cautionf("The run failed: %s", run.Output())
	case model.StatusCancelled:
		md.Warningf("The run was cancelled: %s", run.Output())
	default:
		return
	}
	md.PlainText("")
}

// writeSections writes the analysis, report and narrative.
func (w *MarkdownWriter) writeSections(md *markdown.Markdown, run *model.Run) {
	if run.Analysis != nil {
		md.H3("Analysis")
		md.PlainText("")
		md.PlainText(run.Analysis.Summary)
		md.PlainText("")
	}

	if run.Report != nil {
		md.H3("Report")
		md.PlainText("")
		md.PlainText(run.Report.Text)
		md.PlainText("")

		if run.Report.Narrative != "" {
			md.H3("Narrative")
			md.PlainText("")
			md.Note("Written by " + run.Report.NarrativeModel)
			md.PlainText("")
			md.PlainText(run.Report.Narrative)
			md.PlainText("")
		}
	}

	if run.Page != nil && run.Page.Text != "" {
		md.Details("Page text", run.Page.Text)
		md.PlainText("")
	}
}

// writeOverview writes a status table and a mermaid pie chart of statuses.
func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, runs []*model.Run) {
	md.H2("Overview")
	md.PlainText("")

	rows := make([][]string, len(runs))
	counts := make(map[model.Status]uint64)
	for i, run := range runs {
		counts[run.Status]++
		rows[i] = []string{
			"`" + run.Request.URL + "`",
			w.getStatusText(run),
			truncateString(run.Output(), 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Output"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(runs) == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Run Status Distribution"),
		piechart.WithShowData(true),
	)
	for st := model.StatusNotStarted; st <= model.StatusFailed; st++ {
		if counts[st] > 0 {
			chart.LabelAndIntValue(StatusLabel(st), counts[st])
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [scrapeflow](https://github.com/nao1215/scrapeflow)*")
}
