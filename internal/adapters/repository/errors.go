package repository

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNotFound  = errors.New("run not found")
	ErrDuplicate = errors.New("run already stored")
	ErrEmptyPath = errors.New("empty database path")
)
