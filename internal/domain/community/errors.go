package community

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// Data errors: the call is a no-op and state is untouched.
	ErrUnknownPerson   = errors.New("unknown person")
	ErrUnknownSerotype = errors.New("unknown serotype")
	ErrUnknownLocation = errors.New("unknown location")
	ErrAlreadyImmune   = errors.New("already immune to serotype")
	ErrNotSusceptible  = errors.New("person not susceptible")
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidEvent    = errors.New("invalid vaccination event")
	ErrInvalidMosquito = errors.New("invalid mosquito record")

	// Configuration errors: construction or the day advance must abort.
	ErrInvalidPopulation = errors.New("invalid population records")
)
