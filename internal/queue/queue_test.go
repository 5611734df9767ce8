package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewReadQueue_Success tests the queue factory function.
func TestNewReadQueue_Success(t *testing.T) {
	t.Parallel()

	q := NewReadQueue()

	assert.NotNil(t, q)
	assert.Empty(t, q.items)
	assert.NotNil(t, q.inProgress)
	assert.False(t, q.HasRemainingItems())
}

// TestEnqueueDequeue_Success tests enqueueing and dequeueing of targets.
func TestEnqueueDequeue_Success(t *testing.T) {
	t.Parallel()

	q := NewReadQueue()

	q.Enqueue(
		Target{Iteration: 0, Dataset: "dset-0"},
		Target{Iteration: 1, Dataset: "dset-1"},
		Target{Iteration: 2, Dataset: "dset-0"},
	)

	assert.True(t, q.HasRemainingItems())

	item, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, Target{Iteration: 0, Dataset: "dset-0"}, item)

	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, Target{Iteration: 1, Dataset: "dset-1"}, item)

	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, Target{Iteration: 2, Dataset: "dset-0"}, item)

	_, ok = q.Dequeue()
	assert.False(t, ok)
	assert.False(t, q.HasRemainingItems())
}

// TestDequeueAndProcess_Success tests sequential processing with decisions.
func TestDequeueAndProcess_Success(t *testing.T) {
	t.Parallel()

	q := NewReadQueue()
	q.Enqueue(
		Target{Iteration: 0, Dataset: "dset-0"},
		Target{Iteration: 1, Dataset: "dset-1"},
		Target{Iteration: 2, Dataset: "dset-0"},
	)

	var processed []Target
	err := q.DequeueAndProcess(context.Background(), func(item Target) int {
		processed = append(processed, item)
		if item.Iteration == 1 {
			return DecisionSkipped
		}

		return DecisionSuccess
	})
	require.NoError(t, err)

	assert.Len(t, processed, 3)
	assert.Len(t, q.GetSuccessful(), 2)

	progress := q.Progress()
	assert.Equal(t, 3, progress.ProcessedItems)
	assert.Equal(t, 1, progress.SkippedItems)
	assert.True(t, progress.HasFinished)
}

// TestDequeueAndProcess_Cancellation tests mid-flight context cancellation.
func TestDequeueAndProcess_Cancellation(t *testing.T) {
	t.Parallel()

	q := NewReadQueue()
	for i := 0; i < 10; i++ {
		q.Enqueue(Target{Iteration: i, Dataset: "dset-0"})
	}

	ctx, cancel := context.WithCancel(context.Background())

	var processed int
	err := q.DequeueAndProcess(ctx, func(Target) int {
		processed++
		if processed == 3 {
			cancel()
		}

		return DecisionSuccess
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, processed)
	assert.True(t, q.HasRemainingItems())
}

// TestDrainSkipped_Success tests early-termination draining.
func TestDrainSkipped_Success(t *testing.T) {
	t.Parallel()

	q := NewReadQueue()
	for i := 0; i < 5; i++ {
		q.Enqueue(Target{Iteration: i, Dataset: "dset-1"})
	}

	item, ok := q.Dequeue()
	require.True(t, ok)
	q.SetProcessing(item)
	q.SetSuccess(item)

	q.DrainSkipped()

	assert.False(t, q.HasRemainingItems())

	progress := q.Progress()
	assert.Equal(t, 1, progress.SuccessItems)
	assert.Equal(t, 4, progress.SkippedItems)
	assert.Equal(t, 5, progress.ProcessedItems)
}

// TestProgress_Empty tests the progress snapshot of an untouched queue.
func TestProgress_Empty(t *testing.T) {
	t.Parallel()

	q := NewReadQueue()

	progress := q.Progress()
	assert.False(t, progress.HasStarted)
	assert.Equal(t, 0, progress.TotalItems)
	assert.InDelta(t, 0.0, progress.ProgressPct, 0.001)
}
