package agent

import (
	"github.com/nao1215/scrapeflow/internal/model"
)

const (
	// SummaryPrefix starts every analysis.
	SummaryPrefix = "Summary of content: "

	// SummarySuffix ends every analysis, whether or not the text was cut.
	SummarySuffix = "..."

	// SummaryLength is the number of characters of page text kept in an
	// analysis.
	SummaryLength = 200
)

// AnalyzeContent returns the analysis of the given page text: the first
// SummaryLength characters framed by SummaryPrefix and SummarySuffix.
// Shorter text is used as is, without padding.
func AnalyzeContent(text string) string {
	return SummaryPrefix + truncate(text, SummaryLength) + SummarySuffix
}

// truncate returns the first n code points of s.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Analyzer is the research step.
type Analyzer struct{}

// NewAnalyzer returns the scripted analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze produces the analysis of a fetched page.
func (a *Analyzer) Analyze(page *model.PageContent) *model.AnalysisResult {
	text := ""
	if page != nil {
		text = page.Text
	}
	return &model.AnalysisResult{Summary: AnalyzeContent(text)}
}
