package main

import (
	"context"
	"log/slog"
	"os"
	"runtime/pprof"
)

// CPUProfiler records a CPU profile from construction until [CPUProfiler.Stop]
// is called. Without a target path it does nothing.
//
//nolint:containedctx
type CPUProfiler struct {
	ctx       context.Context
	cancel    context.CancelFunc
	writeDone chan struct{}
}

// NewCPUProfiler starts CPU profiling into the file at path. A nil or empty
// path returns an inert profiler that is still safe to stop.
func NewCPUProfiler(ctx context.Context, path *string) *CPUProfiler {
	p := &CPUProfiler{
		writeDone: make(chan struct{}),
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	go p.Profile(path)

	return p
}

// Profile keeps the CPU profile running until the profiler is stopped.
func (p *CPUProfiler) Profile(path *string) {
	defer close(p.writeDone)

	if path == nil || *path == "" {
		return
	}

	file, err := os.Create(*path)
	if err != nil {
		slog.Error("Failed to create the cpu profile file", "err", err)

		return
	}
	defer file.Close()

	if err := pprof.StartCPUProfile(file); err != nil {
		slog.Error("Failed to start the cpu profile", "err", err)

		return
	}

	defer pprof.StopCPUProfile()

	<-p.ctx.Done()
}

// Stop ends the CPU profile and waits for it to be flushed to disk.
func (p *CPUProfiler) Stop() {
	p.cancel()
	<-p.writeDone
}

// AllocProfiler writes a snapshot of the allocation profile when the program
// shuts down. Without a target path it does nothing.
//
//nolint:containedctx
type AllocProfiler struct {
	ctx       context.Context
	cancel    context.CancelFunc
	writeDone chan struct{}
}

// NewAllocProfiler arms an allocation profiler targeting the file at path. A
// nil or empty path returns an inert profiler that is still safe to stop.
func NewAllocProfiler(ctx context.Context, path *string) *AllocProfiler {
	p := &AllocProfiler{
		writeDone: make(chan struct{}),
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	go p.Profile(path)

	return p
}

// Profile blocks until the profiler is stopped and then takes the snapshot.
func (p *AllocProfiler) Profile(path *string) {
	defer close(p.writeDone)

	if path == nil || *path == "" {
		return
	}

	<-p.ctx.Done()

	file, err := os.Create(*path)
	if err != nil {
		slog.Error("Failed to create the allocs profile file", "err", err)

		return
	}
	defer file.Close()

	if err := pprof.Lookup("allocs").WriteTo(file, 0); err != nil {
		slog.Error("Failed to write the allocs profile", "err", err)
	}
}

// Stop triggers the allocation snapshot and waits for it to be written.
func (p *AllocProfiler) Stop() {
	p.cancel()
	<-p.writeDone
}
