package model

import "errors"

// ErrorMarker is the prefix of every fetch failure message.
const ErrorMarker = "Error during scraping"

// FetchError reports that the page could not be fetched.
// It is the only failure a workflow run can end with: DNS errors,
// timeouts, refused connections and HTTP 4xx/5xx statuses all surface as
// a FetchError, and its message is returned as the workflow output.
type FetchError struct {
	// URL is the address that failed.
	URL string

	// Err is the underlying cause.
	Err error
}

// NewFetchError wraps err as a fetch failure of url.
func NewFetchError(url string, err error) *FetchError {
	return &FetchError{URL: url, Err: err}
}

// Error returns "Error during scraping: <cause>".
func (e *FetchError) Error() string {
	if e.Err == nil {
		return ErrorMarker + ": unknown error"
	}
	return ErrorMarker + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is, or wraps, a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
