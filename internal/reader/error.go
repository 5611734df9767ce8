package reader

import "errors"

var (
	// ErrNoDatasets is an error that occurs when a reader loop is
	// constructed without any read targets.
	ErrNoDatasets = errors.New("no datasets to read")

	// ErrInvalidIterations is an error that occurs when a negative
	// iteration budget is configured.
	ErrInvalidIterations = errors.New("invalid iteration budget")
)
