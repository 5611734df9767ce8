// Package queue implements the bookkeeping queue driving the reader loop's
// iterations. Planned read targets are enqueued up front; the loop dequeues
// and processes them strictly sequentially, and the queue's progress snapshot
// feeds the user interface.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DecisionSuccess is returned by a processFunc when a read iteration
	// completed.
	DecisionSuccess = 1

	// DecisionSkipped is returned by a processFunc when a read iteration
	// was skipped (e.g. the loop terminated early on a tripped trap).
	DecisionSkipped = 0
)

// Target is one planned read iteration: which dataset to open and at which
// loop iteration. The iteration index keeps repeated reads of the same
// dataset distinct within the queue.
type Target struct {
	Iteration int
	Dataset   string
}

// ReadQueue is a thread-safe queue of planned read [Target] items.
type ReadQueue struct {
	sync.RWMutex
	hasStarted  bool
	hasFinished bool
	startTime   time.Time
	finishTime  time.Time
	head        int
	items       []Target
	success     []Target
	skipped     []Target
	inProgress  map[Target]struct{}
}

// NewReadQueue returns a pointer to a new [ReadQueue].
func NewReadQueue() *ReadQueue {
	return &ReadQueue{
		inProgress: make(map[Target]struct{}),
	}
}

// HasRemainingItems returns whether the queue has remaining targets.
func (q *ReadQueue) HasRemainingItems() bool {
	q.RLock()
	defer q.RUnlock()

	return q.head < len(q.items)
}

// GetSuccessful returns a copy of the successfully processed targets.
func (q *ReadQueue) GetSuccessful() []Target {
	q.RLock()
	defer q.RUnlock()

	result := make([]Target, len(q.success))
	copy(result, q.success)

	return result
}

// Enqueue adds targets to the queue.
func (q *ReadQueue) Enqueue(items ...Target) {
	q.Lock()
	defer q.Unlock()

	if q.hasFinished {
		q.finishTime = time.Time{}
		q.hasFinished = false
	}

	for _, item := range items {
		delete(q.inProgress, item)
		q.items = append(q.items, item)
	}
}

// Dequeue returns the next target and advances the queue head.
func (q *ReadQueue) Dequeue() (Target, bool) {
	q.Lock()
	defer q.Unlock()

	if q.head >= len(q.items) {
		return Target{}, false
	}

	if q.head == len(q.items)-1 && !q.hasFinished {
		q.finishTime = time.Now()
		q.hasFinished = true
	}

	if !q.hasStarted {
		q.startTime = time.Now()
		q.hasStarted = true
	}

	item := q.items[q.head]
	q.head++

	return item, true
}

// SetProcessing marks targets as in progress.
func (q *ReadQueue) SetProcessing(items ...Target) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		q.inProgress[item] = struct{}{}
	}
}

// SetSuccess marks in-progress targets as successfully processed.
func (q *ReadQueue) SetSuccess(items ...Target) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.success = append(q.success, item)
	}
}

// SetSkipped marks in-progress targets as skipped.
func (q *ReadQueue) SetSkipped(items ...Target) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.skipped = append(q.skipped, item)
	}
}

// DequeueAndProcess sequentially dequeues and processes targets using the
// given processFunc. An error is only returned on a context cancellation;
// the processFunc is otherwise expected to return one of [DecisionSuccess]
// or [DecisionSkipped] for each target.
func (q *ReadQueue) DequeueAndProcess(ctx context.Context, processFunc func(Target) int) error {
	for {
		if ctx.Err() != nil {
			break
		}

		item, ok := q.Dequeue()
		if !ok {
			break
		}

		q.SetProcessing(item)

		switch processFunc(item) {
		case DecisionSkipped:
			q.SetSkipped(item)

		case DecisionSuccess:
			q.SetSuccess(item)
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("(queue-proc) %w", ctx.Err())
	}

	return nil
}

// DrainSkipped marks every remaining target as skipped, for when the loop
// terminates early (trap tripped, so the stress run is already decided).
func (q *ReadQueue) DrainSkipped() {
	for {
		item, ok := q.Dequeue()
		if !ok {
			return
		}

		q.SetSkipped(item)
	}
}
