package storefile

import "errors"

var (
	// ErrInvalidConfig is an error that occurs when a [Config] violates a
	// configuration invariant.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBadPage is an error that occurs when an on-disk page or payload
	// is structurally malformed, beyond what a torn write could produce.
	ErrBadPage = errors.New("malformed metadata page")

	// ErrNoSuchPage is an error that occurs when a page beyond the
	// reserved page geometry is requested.
	ErrNoSuchPage = errors.New("no such metadata page")

	// ErrNoSuchObject is an error that occurs when a dataset name cannot
	// be resolved through the directory page.
	ErrNoSuchObject = errors.New("no such object")

	// ErrObjectClosed is an error that occurs when an already released
	// dataset handle is closed again.
	ErrObjectClosed = errors.New("object handle already closed")

	// ErrPayloadTooLarge is an error that occurs when a page payload does
	// not fit the configured page size.
	ErrPayloadTooLarge = errors.New("payload exceeds page size")

	// ErrBufferTooSmall is an error that occurs when resolved content does
	// not fit the caller-supplied content buffer.
	ErrBufferTooSmall = errors.New("content exceeds buffer capacity")

	// ErrUnknownDataset is an error that occurs when the writer is asked
	// to mutate a dataset it does not manage.
	ErrUnknownDataset = errors.New("unknown dataset")
)
