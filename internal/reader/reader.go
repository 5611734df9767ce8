// Package reader implements the reader-side loop of the SWMR conformance
// harness: repeated open/read cycles against live datasets, alternating
// round-robin between targets, with all consistency decisions delegated to
// the metadata page cache. The loop terminates early (and successfully) once
// the boundary trap has fired, or after its iteration budget is exhausted.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tickloom/swmread/internal/pagecache"
	"github.com/tickloom/swmread/internal/queue"
	"github.com/tickloom/swmread/internal/signalgate"
	"github.com/tickloom/swmread/internal/storefile"
	"github.com/tickloom/swmread/internal/trap"
)

// State is a state of the reader loop.
type State int

const (
	// StateOpen acquires the dataset handle for the current target.
	StateOpen State = iota

	// StateRead reads the dataset's current content through the cache.
	StateRead

	// StateCheckTrap decides on early termination after a read.
	StateCheckTrap

	// StateDelay paces the loop between iterations.
	StateDelay

	// StateDone releases resources, optionally after the terminal wait.
	StateDone
)

const (
	// DefaultIterations is the default iteration budget.
	DefaultIterations = 100

	// DefaultDelay is the default pacing interval between iterations.
	DefaultDelay = 100 * time.Millisecond

	// DefaultBufferSize is the default content buffer capacity.
	DefaultBufferSize = 96
)

// Config parameterizes a reader loop.
type Config struct {
	// Datasets are the round-robin read targets; they are expected to
	// pre-exist in the store file.
	Datasets []string

	// Iterations is the iteration budget; zero means no reads at all.
	Iterations int

	// Delay paces the loop between iterations.
	Delay time.Duration

	// WaitForSignal selects whether the loop blocks for the writer
	// finished notification before releasing resources.
	WaitForSignal bool

	// BufferSize is the content buffer capacity in bytes.
	BufferSize int
}

// Handler is the principal implementation of the reader loop.
type Handler struct {
	file      *storefile.File
	faultTrap *trap.Trap
	gate      *signalgate.Gate
	readQueue *queue.ReadQueue
	cfg       Config
}

// NewHandler returns a pointer to a new reader [Handler].
func NewHandler(file *storefile.File, faultTrap *trap.Trap, gate *signalgate.Gate,
	readQueue *queue.ReadQueue, cfg Config,
) (*Handler, error) {
	if len(cfg.Datasets) == 0 {
		return nil, fmt.Errorf("(reader) %w", ErrNoDatasets)
	}

	if cfg.Iterations < 0 {
		return nil, fmt.Errorf("(reader) %w: %d", ErrInvalidIterations, cfg.Iterations)
	}

	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	return &Handler{
		file:      file,
		faultTrap: faultTrap,
		gate:      gate,
		readQueue: readQueue,
		cfg:       cfg,
	}, nil
}

// Run executes the reader loop: the planned iterations run inside the signal
// gate's protected region, then the loop optionally blocks for the writer
// finished notification. The gate is released on every path leaving the
// protected region, including fatal errors and early trap termination.
func (h *Handler) Run(ctx context.Context) error {
	h.plan()

	if err := h.guardedLoop(ctx); err != nil {
		return err
	}

	if h.cfg.WaitForSignal {
		slog.Info("Waiting for writer-finished notification...")

		select {
		case <-h.gate.Done():
		case <-ctx.Done():
			return fmt.Errorf("(reader) %w", ctx.Err())
		}
	}

	return nil
}

// plan enqueues one target per budgeted iteration, alternating round-robin
// between the configured datasets.
func (h *Handler) plan() {
	for i := 0; i < h.cfg.Iterations; i++ {
		h.readQueue.Enqueue(queue.Target{
			Iteration: i,
			Dataset:   h.cfg.Datasets[i%len(h.cfg.Datasets)],
		})
	}
}

// guardedLoop drives the state machine with the signal gate held.
func (h *Handler) guardedLoop(ctx context.Context) error {
	token := h.gate.Enter()
	defer h.gate.Exit(token)

	return h.loop(ctx)
}

// loop is the principal state machine. It returns nil both when the budget
// is exhausted and when the boundary trap fired; the trap firing is the
// expected positive outcome of a fault-injection run, not an error.
func (h *Handler) loop(ctx context.Context) error {
	buf := storefile.NewContentBuffer(h.cfg.BufferSize)

	var target queue.Target
	var object *storefile.Object

	state := StateOpen

	for {
		switch state {
		case StateOpen:
			next, ok := h.readQueue.Dequeue()
			if !ok {
				return nil
			}
			target = next
			h.readQueue.SetProcessing(target)

			slog.Info("Read iteration",
				"iteration", target.Iteration,
				"dataset", target.Dataset,
			)

			opened, err := h.file.OpenObject(ctx, target.Dataset)
			if err != nil {
				h.readQueue.SetSkipped(target)

				return fmt.Errorf("(reader) open %q: %w", target.Dataset, err)
			}
			object = opened

			state = StateRead

		case StateRead:
			readErr := object.Read(ctx, buf)
			closeErr := object.Close()
			object = nil

			if readErr != nil && !errors.Is(readErr, pagecache.ErrOutOfBounds) {
				h.readQueue.SetSkipped(target)

				return fmt.Errorf("(reader) read %q: %w", target.Dataset, readErr)
			}

			if closeErr != nil {
				h.readQueue.SetSkipped(target)

				return fmt.Errorf("(reader) close %q: %w", target.Dataset, closeErr)
			}
			h.readQueue.SetSuccess(target)

			state = StateCheckTrap

		case StateCheckTrap:
			if h.faultTrap.Triggered() {
				slog.Info("Caught out of bounds: ending stress loop.",
					"iteration", target.Iteration,
				)
				h.readQueue.DrainSkipped()

				return nil
			}

			state = StateDelay

		case StateDelay:
			select {
			case <-ctx.Done():
				return fmt.Errorf("(reader) %w", ctx.Err())
			case <-time.After(h.cfg.Delay):
			}

			state = StateOpen
		}
	}
}
