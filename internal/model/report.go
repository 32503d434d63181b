package model

// AnalysisKey is the context variable key under which the analysis
// result is handed to the writer.
const AnalysisKey = "analysis"

// AnalysisResult is the summary derived from the page text.
type AnalysisResult struct {
	// Summary is the analyzer output.
	Summary string `json:"summary"`
}

// ContextVariables carries intermediate results between workflow steps.
type ContextVariables map[string]string

// Get returns the value stored under key, or def when the key is absent.
// A nil map behaves like an empty one.
func (c ContextVariables) Get(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// Report is the final artifact of a workflow run.
type Report struct {
	// Text is the writer output. This is what the workflow returns.
	Text string `json:"text"`

	// Narrative is an optional rewrite of Text produced by a language
	// model. It is empty unless narration is enabled, and it never
	// replaces Text as the workflow output.
	Narrative string `json:"narrative,omitempty"`

	// NarrativeModel names the model that produced Narrative.
	NarrativeModel string `json:"narrative_model,omitempty"`
}
