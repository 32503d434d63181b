package fetcher

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// StatusError is the cause of a fetch failure due to an HTTP error status.
type StatusError struct {
	// Code is the HTTP status code.
	Code int

	// Reason is the reason phrase sent by the server.
	Reason string

	// URL is the final URL of the response.
	URL string
}

// Error returns e.g. "404 Client Error: Not Found for url: https://example.com/x".
func (e *StatusError) Error() string {
	kind := "Client Error"
	if e.Code >= 500 {
		kind = "Server Error"
	}
	return fmt.Sprintf("%d %s: %s for url: %s", e.Code, kind, e.Reason, e.URL)
}

// isErrorStatus reports whether code is a 4xx or 5xx status.
func isErrorStatus(code int) bool {
	return code >= 400 && code < 600
}

// reasonPhrase extracts the reason phrase from a status line such as
// "404 Not Found".
func reasonPhrase(status string, code int) string {
	reason := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if reason == "" {
		reason = http.StatusText(code)
	}
	if reason == "" {
		return "Unknown"
	}
	return reason
}
