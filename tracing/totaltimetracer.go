package tracing

import (
	"sync"
	"time"
)

// TotalTimeTracer can collect the total time of executing a certain type of
// operation. If a traced operation is nested in another traced operation,
// its time is counted by both; the total self time never double counts.
type TotalTimeTracer struct {
	filter        OperationFilter
	lock          sync.Mutex
	totalTime     time.Duration
	totalSelfTime time.Duration
	count         int
}

// NewTotalTimeTracer creates a new TotalTimeTracer. A nil filter traces all
// the operations.
func NewTotalTimeTracer(filter OperationFilter) *TotalTimeTracer {
	return &TotalTimeTracer{filter: filter}
}

// TotalTime returns the sum of the elapsed time of the traced operations.
func (t *TotalTimeTracer) TotalTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// TotalSelfTime returns the sum of the self time of the traced operations.
func (t *TotalTimeTracer) TotalSelfTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalSelfTime
}

// Count returns the number of traced operations that have ended.
func (t *TotalTimeTracer) Count() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// StartOperation does nothing
func (t *TotalTimeTracer) StartOperation(_ Operation) {
	// Do nothing
}

// EndOperation adds the time of the operation
func (t *TotalTimeTracer) EndOperation(op Operation) {
	if t.filter != nil && !t.filter(op) {
		return
	}

	t.lock.Lock()
	t.totalTime += op.Elapsed
	t.totalSelfTime += op.SelfTime
	t.count++
	t.lock.Unlock()
}
