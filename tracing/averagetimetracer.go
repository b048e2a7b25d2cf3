package tracing

import (
	"sync"
	"time"
)

// AverageTimeTracer can collect the average elapsed and self time of a
// certain type of operation.
type AverageTimeTracer struct {
	filter      OperationFilter
	lock        sync.Mutex
	averageTime time.Duration
	averageSelf time.Duration
	count       uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer. A nil filter traces
// all the operations.
func NewAverageTimeTracer(filter OperationFilter) *AverageTimeTracer {
	return &AverageTimeTracer{filter: filter}
}

// AverageTime returns the average elapsed time of the traced operations.
func (t *AverageTimeTracer) AverageTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.averageTime
}

// AverageSelfTime returns the average self time of the traced operations.
func (t *AverageTimeTracer) AverageSelfTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.averageSelf
}

// TotalCount returns the total number of traced operations.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// StartOperation does nothing
func (t *AverageTimeTracer) StartOperation(_ Operation) {
	// Do nothing
}

// EndOperation folds the operation into the averages.
func (t *AverageTimeTracer) EndOperation(op Operation) {
	if t.filter != nil && !t.filter(op) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.averageTime = movingAverage(t.averageTime, op.Elapsed, t.count)
	t.averageSelf = movingAverage(t.averageSelf, op.SelfTime, t.count)
	t.count++
}

func movingAverage(avg, sample time.Duration, n uint64) time.Duration {
	return time.Duration(
		(float64(avg)*float64(n) + float64(sample)) / float64(n+1))
}
