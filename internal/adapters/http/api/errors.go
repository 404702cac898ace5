package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrServe        = errors.New("status server failed")
	ErrMissingRunID = errors.New("missing run id")
	ErrNoStore      = errors.New("no results store configured")
)
