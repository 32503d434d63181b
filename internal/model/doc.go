// Package model defines the data passed between the workflow steps.
//
// This package contains the following main types:
//   - WorkflowRequest: The single URL a workflow run starts from
//   - PageContent: Visible text extracted from the fetched page
//   - AnalysisResult: The summary derived from the page text
//   - Report: The final formatted report returned to the caller
//   - Run: One workflow execution with its artifacts, status and error
//
// Models live in their own package so that fetcher, agent, pipeline,
// report and database can share them without import cycles. All of them
// are serializable to JSON for report output and database storage.
package model
