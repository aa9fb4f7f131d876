package dialog

import "errors"

var (
	// ErrDialogNotFound indicates the dialog doesn't exist.
	ErrDialogNotFound = errors.New("dialog not found")
	// ErrInvalidInput indicates invalid input for dialog operations.
	ErrInvalidInput = errors.New("invalid dialog input")
)
