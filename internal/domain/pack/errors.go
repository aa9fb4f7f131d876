package pack

import "errors"

var (
	// ErrPackNotFound indicates the pack doesn't exist.
	ErrPackNotFound = errors.New("pack not found")
	// ErrInvalidInput indicates invalid input for pack operations.
	ErrInvalidInput = errors.New("invalid pack input")
)
