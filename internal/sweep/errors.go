package sweep

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownParameter = errors.New("unknown sweep parameter")
	ErrInvalidPrior     = errors.New("invalid prior")
	ErrUnknownMetric    = errors.New("unknown metric")
)
