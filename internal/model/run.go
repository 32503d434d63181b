package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the position of a run in the workflow.
//
//	not_started -> fetched -> analyzed -> done
//	not_started -> failed_at_fetch
//
// A run whose context ends between steps is marked cancelled. Any other
// step error marks it failed. Terminal statuses never change.
type Status int

const (
	// StatusNotStarted is the state of a freshly created run.
	StatusNotStarted Status = iota

	// StatusFetched means the page text is available.
	StatusFetched

	// StatusAnalyzed means the analysis result is available.
	StatusAnalyzed

	// StatusDone means the report is available.
	StatusDone

	// StatusFailedAtFetch means the page could not be fetched and no
	// further step ran.
	StatusFailedAtFetch

	// StatusCancelled means the caller gave up before the run finished.
	StatusCancelled

	// StatusFailed means a step other than the fetch returned an error.
	StatusFailed
)

// String returns the identifier used in JSON and in the database.
func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusFetched:
		return "fetched"
	case StatusAnalyzed:
		return "analyzed"
	case StatusDone:
		return "done"
	case StatusFailedAtFetch:
		return "failed_at_fetch"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for st := StatusNotStarted; st <= StatusFailed; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return StatusNotStarted, fmt.Errorf("unknown run status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// IsTerminal reports whether no step will run after this status.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s.failed()
}

func (s Status) failed() bool {
	return s == StatusFailedAtFetch || s == StatusCancelled || s == StatusFailed
}

// Run is one execution of the scrape, analyze, write workflow.
// Steps fill the artifacts in order; each artifact is set once and never
// modified afterwards.
type Run struct {
	// ID is the database identifier. Zero until the run is saved.
	ID int64 `json:"id,omitempty"`

	// Request is the input of the run.
	Request WorkflowRequest `json:"request"`

	// Status is the current workflow position.
	Status Status `json:"status"`

	// Page is the fetcher output.
	Page *PageContent `json:"page,omitempty"`

	// Analysis is the analyzer output.
	Analysis *AnalysisResult `json:"analysis,omitempty"`

	// Report is the writer output.
	Report *Report `json:"report,omitempty"`

	// Err is the failure that ended the run, if any.
	// It is not serialized; ErrorMessage carries its text.
	Err error `json:"-"`

	// ErrorMessage is Err.Error(), kept for JSON and database storage.
	ErrorMessage string `json:"error,omitempty"`

	// PerformedSteps lists the steps that completed, in order.
	PerformedSteps []string `json:"performed_steps"`

	// StartedAt is when the run was created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run reached a terminal status.
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewRun creates a run for the given request.
func NewRun(req WorkflowRequest) *Run {
	return &Run{
		Request:        req,
		Status:         StatusNotStarted,
		PerformedSteps: make([]string, 0),
		StartedAt:      time.Now(),
	}
}

// SetPage records the fetcher output.
func (r *Run) SetPage(p *PageContent) {
	r.Page = p
	r.Status = StatusFetched
}

// SetAnalysis records the analyzer output.
func (r *Run) SetAnalysis(a *AnalysisResult) {
	r.Analysis = a
	r.Status = StatusAnalyzed
}

// SetReport records the writer output and completes the run.
func (r *Run) SetReport(rep *Report) {
	r.Report = rep
	r.Status = StatusDone
	r.finish()
}

// Fail ends the run with err.
// A FetchError moves the run to StatusFailedAtFetch, a context error
// moves it to StatusCancelled and any other error to StatusFailed.
// A run that already reached a terminal status is left unchanged.
func (r *Run) Fail(err error) {
	if err == nil || r.Status.IsTerminal() {
		return
	}
	r.Err = err
	r.ErrorMessage = err.Error()

	switch {
	case IsFetchError(err):
		r.Status = StatusFailedAtFetch
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.Status = StatusCancelled
	default:
		r.Status = StatusFailed
	}
	r.finish()
}

// Failed reports whether the run ended without a report.
func (r *Run) Failed() bool {
	return r.Status.failed()
}

// Output returns the string the workflow hands back to its caller: the
// fetch error text when the fetch failed, otherwise the report text.
func (r *Run) Output() string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	if r.Report != nil {
		return r.Report.Text
	}
	return ""
}

// Duration returns the wall time of a finished run, or zero.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// MarkStep appends name to PerformedSteps.
func (r *Run) MarkStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}

func (r *Run) finish() {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
}
