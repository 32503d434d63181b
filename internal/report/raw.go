package report

import (
	"io"
	"strings"

	"github.com/nao1215/scrapeflow/internal/model"
)

// RawWriter outputs only the workflow output string, one run after another.
// It is what scripts should read: the report text on success and the
// fetch error text on failure.
type RawWriter struct {
	baseWriter
}

// NewRawWriter creates a RawWriter that outputs to the given writer.
func NewRawWriter(output io.Writer) *RawWriter {
	return &RawWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs run.Output() followed by a newline.
func (w *RawWriter) Write(run *model.Run) (int, error) {
	return io.WriteString(w.output, run.Output()+"\n")
}

// WriteBatch outputs each run's output on its own line.
func (w *RawWriter) WriteBatch(runs []*model.Run) (int, error) {
	var sb strings.Builder
	for _, run := range runs {
		sb.WriteString(run.Output())
		sb.WriteString("\n")
	}
	return io.WriteString(w.output, sb.String())
}
