package delayq

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrHorizonExceeded = errors.New("delay exceeds queue horizon")
	ErrNegativeDelay   = errors.New("negative delay")
)
