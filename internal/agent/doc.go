// Package agent defines the three agents of a scrapeflow run and the two
// scripted transformations they perform.
//
// An agent is only a name and a set of instructions. The scraper agent's
// work is done by the fetcher package; the research and writer agents are
// implemented here as pure string functions:
//
//	AnalyzeContent(text)  -> "Summary of content: <first 200 characters>..."
//	WriteSummary(vars)    -> "Here's a detailed report based on the research: <analysis>"
//
// Agents are called directly by the pipeline. The instructions are kept so
// that steps can be labelled in logs and reports, and so that an optional
// language model narrator can be given the writer's brief.
package agent
