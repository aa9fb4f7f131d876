package message

import "errors"

var (
	// ErrDialogNotFound indicates the target dialog doesn't exist.
	ErrDialogNotFound = errors.New("dialog not found")
	// ErrNotMember indicates the sender is not a member of the dialog.
	ErrNotMember = errors.New("sender is not a dialog member")
	// ErrInvalidInput indicates invalid input for message operations.
	ErrInvalidInput = errors.New("invalid message input")
)
