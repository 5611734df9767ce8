// Package signalgate implements scoped suspension of the writer-finished
// notification. While a reader holds the gate, delivery of the notification
// is deferred, so termination handling can never race an in-flight read; it
// is observed only at the loop's defined yield points after the gate is
// released.
//
// The notification is modeled as a latched channel rather than interrupt
// style delivery: [Gate.Done] becomes readable once the notification has
// both arrived and is unmasked.
package signalgate

import "sync"

// Token captures the delivery mask as it was when a protected region was
// entered; [Gate.Exit] restores exactly that mask.
type Token struct {
	prevMasked bool
}

// Gate is the principal implementation of the signal gate. The zero value is
// not usable; construct with [New].
type Gate struct {
	sync.Mutex
	masked    bool
	pending   bool
	delivered chan struct{}
}

// New returns a pointer to a new, unmasked [Gate].
func New() *Gate {
	return &Gate{
		delivered: make(chan struct{}),
	}
}

// Enter blocks delivery of the notification and returns a token capturing
// the previous delivery mask. Every Enter must be balanced by exactly one
// [Gate.Exit] with that token, on every path leaving the protected region.
func (g *Gate) Enter() Token {
	g.Lock()
	defer g.Unlock()

	token := Token{prevMasked: g.masked}
	g.masked = true

	return token
}

// Exit restores the delivery mask captured by the matching [Gate.Enter]. A
// notification that arrived while masked is delivered now, if the restored
// mask permits delivery.
func (g *Gate) Exit(token Token) {
	g.Lock()
	defer g.Unlock()

	g.masked = token.prevMasked

	if !g.masked && g.pending {
		g.deliverLocked()
	}
}

// Notify records the arrival of the writer-finished notification. Delivery
// happens immediately when unmasked, or is deferred until the mask lifts.
// Notify is idempotent.
func (g *Gate) Notify() {
	g.Lock()
	defer g.Unlock()

	if g.masked {
		g.pending = true

		return
	}

	g.deliverLocked()
}

// Done returns the channel that becomes readable once the notification has
// been delivered. The channel is closed at most once.
func (g *Gate) Done() <-chan struct{} {
	return g.delivered
}

// deliverLocked closes the delivery channel exactly once. The gate mutex
// must be held.
func (g *Gate) deliverLocked() {
	g.pending = false

	select {
	case <-g.delivered:
	default:
		close(g.delivered)
	}
}
