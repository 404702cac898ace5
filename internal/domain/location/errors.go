package location

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownStrategy = errors.New("unknown mosquito strategy")
	ErrUnknownType     = errors.New("unknown location type")
)
