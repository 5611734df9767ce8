package queue

import "time"

// Progress is a point-in-time snapshot of a [ReadQueue], for rendering by
// the user interface.
type Progress struct {
	HasStarted      bool
	HasFinished     bool
	StartTime       time.Time
	FinishTime      time.Time
	ProgressPct     float64
	TotalItems      int
	ProcessedItems  int
	InProgressItems int
	SuccessItems    int
	SkippedItems    int
	ETA             time.Time
	TimeLeft        time.Duration
	ReadsPerSec     float64
}

// Progress returns the [Progress] for the [ReadQueue].
func (q *ReadQueue) Progress() Progress {
	q.RLock()
	defer q.RUnlock()

	totalItems := len(q.items)

	processedItems := len(q.success) + len(q.skipped)
	processedItems = min(processedItems, totalItems)

	var progressPct float64
	if totalItems > 0 {
		progressPct = float64(processedItems) / float64(totalItems) * 100 //nolint:mnd
		progressPct = max(float64(0), min(progressPct, float64(100)))     //nolint:mnd
	}

	var eta time.Time
	var timeLeft time.Duration
	var readsPerSec float64

	if q.hasStarted && processedItems > 0 && processedItems < totalItems {
		elapsed := time.Since(q.startTime)
		perSec := float64(processedItems) / max(elapsed.Seconds(), 1)

		if perSec > 0 {
			remaining := totalItems - processedItems
			timeLeft = time.Duration(float64(remaining) / perSec * float64(time.Second))
			eta = time.Now().Add(timeLeft)
			readsPerSec = perSec
		}
	}

	return Progress{
		HasStarted:      q.hasStarted,
		HasFinished:     q.hasFinished,
		StartTime:       q.startTime,
		FinishTime:      q.finishTime,
		ProgressPct:     progressPct,
		TotalItems:      totalItems,
		ProcessedItems:  processedItems,
		InProgressItems: len(q.inProgress),
		SuccessItems:    len(q.success),
		SkippedItems:    len(q.skipped),
		ETA:             eta,
		TimeLeft:        timeLeft,
		ReadsPerSec:     readsPerSec,
	}
}
