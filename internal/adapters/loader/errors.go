package loader

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrMissingFile     = errors.New("required input file not configured")
)
