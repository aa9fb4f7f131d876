package event

import "errors"

var (
	// ErrInvalidInput indicates a malformed event.
	ErrInvalidInput = errors.New("invalid event input")
)
