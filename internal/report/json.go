package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/scrapeflow/internal/model"
)

// JSONWriter outputs runs in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run in JSON format.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(run)
}

// WriteBatch outputs the runs as a JSON array.
func (w *JSONWriter) WriteBatch(runs []*model.Run) (int, error) {
	if runs == nil {
		runs = []*model.Run{}
	}
	return w.writeJSON(runs)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps a run with the tool version and the workflow output.
type JSONReport struct {
	// Version is the scrapeflow version that produced this report.
	Version string `json:"version"`

	// Output is the workflow output string.
	Output string `json:"output"`

	// Run is the full run.
	Run *model.Run `json:"run"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(run *model.Run, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Output:  run.Output(),
		Run:     run,
	}
}

// FullJSONWriter outputs runs with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the scrapeflow version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the run wrapped with metadata.
func (w *FullJSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(NewJSONReport(run, w.version))
}

// WriteBatch outputs every run wrapped with metadata.
func (w *FullJSONWriter) WriteBatch(runs []*model.Run) (int, error) {
	wrapped := make([]*JSONReport, 0, len(runs))
	for _, run := range runs {
		wrapped = append(wrapped, NewJSONReport(run, w.version))
	}
	return w.writeJSON(wrapped)
}
