// Package tick implements the process-wide logical clock that defines the
// unit of consistency for the SWMR protocol. The clock is a pure counter: the
// reader side only ever observes it, advancement is the job of an external
// periodic driver (the writer process in production, a [Driver] in tests).
package tick

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonically increasing logical clock. The zero value is a
// valid clock starting at tick 0.
type Clock struct {
	current atomic.Uint64
}

// NewClock returns a pointer to a new [Clock].
func NewClock() *Clock {
	return &Clock{}
}

// Current returns the last observed tick in a non-blocking manner.
func (c *Clock) Current() uint64 {
	return c.current.Load()
}

// Advance moves the clock forward by one tick and returns the new value.
// It must only be called by the periodic driver, never by a reader.
func (c *Clock) Advance() uint64 {
	return c.current.Add(1)
}

// Driver advances a [Clock] at a fixed wall-time cadence. When the driver is
// stopped (or its owner dies), the clock simply stops advancing; consumers
// must treat a frozen clock as "writer absent", not as an error.
type Driver struct {
	clock    *Clock
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewDriver returns a pointer to a new [Driver] and starts advancing the
// given [Clock] every interval. The driver needs to be stopped by e.g.
// deferred calling of [Driver.Stop] before program exit.
func NewDriver(clock *Clock, interval time.Duration) *Driver {
	d := &Driver{
		clock:    clock,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go d.run()

	return d
}

// Stop halts the advancement of the driven [Clock]. The clock retains its
// last value; Stop is idempotent only in the sense that the driver must not
// be stopped twice.
func (d *Driver) Stop() {
	close(d.stopChan)
	<-d.doneChan
}

// run is the principal loop advancing the clock every interval.
func (d *Driver) run() {
	defer close(d.doneChan)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.clock.Advance()
		}
	}
}
