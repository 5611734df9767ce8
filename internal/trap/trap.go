// Package trap implements the boundary trap, a fault-injection hook that
// intercepts out-of-bounds heap-fragment access and converts it into an
// observable, non-fatal event. In a correct deployment the trapped condition
// never occurs; the trap exists so the test suite can prove that it does not.
package trap

import "sync/atomic"

// ReasonOutOfBounds is the one trapped reason that is suppressed rather than
// propagated as fatal.
const ReasonOutOfBounds = "out of bounds"

// Trap is an injectable fault hook with a latched trigger state. The zero
// value is a valid, untriggered trap.
type Trap struct {
	triggered atomic.Bool
}

// New returns a pointer to a new, untriggered [Trap].
func New() *Trap {
	return &Trap{}
}

// Report records an intercepted fault condition. For [ReasonOutOfBounds] it
// latches the trigger state and returns false, meaning the caller must
// suppress the fault. For any other reason it returns true, meaning the
// caller must treat the fault as fatal and propagate it.
func (t *Trap) Report(reason string) bool {
	if reason == ReasonOutOfBounds {
		t.triggered.Store(true)

		return false
	}

	return true
}

// Triggered returns whether the trap has intercepted an out-of-bounds access
// at any point during the run. The latch never resets.
func (t *Trap) Triggered() bool {
	return t.triggered.Load()
}
