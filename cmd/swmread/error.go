package main

import "errors"

var (
	// ErrInvalidFlag is returned when a command-line flag fails validation.
	ErrInvalidFlag = errors.New("invalid command-line flag")
)
