package model

import (
	"strings"
)

// WorkflowRequest is the sole external input of a workflow run.
// The URL is free text; no validation is done beyond what the HTTP
// client enforces when the page is fetched.
type WorkflowRequest struct {
	// URL is the address of the page to scrape.
	URL string `json:"url"`
}

// NewWorkflowRequest creates a request for the given URL.
// Surrounding whitespace is trimmed since the value usually comes from a
// text input or a command line argument.
func NewWorkflowRequest(url string) WorkflowRequest {
	return WorkflowRequest{URL: strings.TrimSpace(url)}
}

// IsEmpty reports whether the request carries no URL at all.
func (r WorkflowRequest) IsEmpty() bool {
	return r.URL == ""
}
