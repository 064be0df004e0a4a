package control

import "errors"

var (
	// ErrUnknownStrategy is returned when a room names a strategy that
	// does not exist.
	ErrUnknownStrategy = errors.New("control: unknown strategy")
)
