package main

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// allocSampleInterval is how often the observer samples [runtime.MemStats].
const allocSampleInterval = 100 * time.Millisecond

// memoryObserver samples the runtime allocator in the background and keeps
// the highest allocation size it has seen.
type memoryObserver struct {
	sync.RWMutex
	peakAlloc uint64
	quitChan  chan struct{}
}

// newMemoryObserver starts a background sampler and returns the observer.
// [memoryObserver.Stop] ends the sampling and reports the peak, so it should
// be deferred right after construction.
func newMemoryObserver(ctx context.Context) *memoryObserver {
	obs := &memoryObserver{
		quitChan: make(chan struct{}),
	}
	go obs.sample(ctx)

	return obs
}

// PeakAlloc returns the highest allocation size recorded so far.
func (o *memoryObserver) PeakAlloc() uint64 {
	o.RLock()
	defer o.RUnlock()

	return o.peakAlloc
}

// Stop ends the sampling and logs the recorded peak with [slog.Info].
func (o *memoryObserver) Stop() {
	close(o.quitChan)
	slog.Info("Peak memory allocation:", "peakAllocMiB", (o.PeakAlloc() / 1024 / 1024)) //nolint:mnd
}

// sample polls [runtime.MemStats] every [allocSampleInterval] until stopped.
func (o *memoryObserver) sample(ctx context.Context) {
	ticker := time.NewTicker(allocSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.quitChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)

			o.Lock()
			if stats.Alloc > o.peakAlloc {
				o.peakAlloc = stats.Alloc
			}
			o.Unlock()
		}
	}
}
