package pagecache

import "errors"

var (
	// ErrInvalidCapacity is an error that occurs when a [Cache] is
	// constructed with a reserved page capacity of zero or less.
	ErrInvalidCapacity = errors.New("invalid cache capacity")

	// ErrTornFetch is an error a page fetcher wraps to signal that a fetch
	// observed an in-flight writer publish (checksum mismatch); such a
	// fetch is retried by the [Cache] with bounded backoff.
	ErrTornFetch = errors.New("page fetch raced an in-flight publish")

	// ErrOutOfBounds is an error that occurs when a heap-fragment
	// reference points beyond the current heap region and the boundary
	// trap has suppressed the fault; callers treat this as the
	// detected-and-handled condition, not as a fatal failure.
	ErrOutOfBounds = errors.New("fragment reference out of bounds")

	// ErrFragmentFatal is an error that occurs when an out-of-bounds
	// fragment reference was NOT suppressed by the boundary trap.
	ErrFragmentFatal = errors.New("unsuppressed out-of-bounds fragment reference")
)

// isTornFetch reports whether an error signals a retryable torn fetch.
func isTornFetch(err error) bool {
	return errors.Is(err, ErrTornFetch)
}
