package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ValidateRun().
// Callers can use errors.Is() to tell them apart.
var (
	// ErrNoTarget is returned when the run command gets no URL.
	ErrNoTarget = errors.New("no target specified: provide at least one URL")

	// ErrInvalidTimeout is returned when the timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --raw is specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: only one of --json, --markdown and --raw can be used")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMode is returned for an unknown extraction mode.
	ErrInvalidMode = errors.New("invalid extraction mode: must be \"text\" or \"article\"")

	// ErrConflictingProxy is returned when both --proxy and --tor are set.
	ErrConflictingProxy = errors.New("conflicting network options: --proxy and --tor cannot be used together")

	// ErrEmptyListenAddress is returned when the server has no address to
	// listen on.
	ErrEmptyListenAddress = errors.New("invalid listen address: must not be empty")
)
