// Package report renders the outcome of a tracking session.
package report

import (
	"sort"
	"time"

	"github.com/sarchlab/selftime/tracing"
	"github.com/sarchlab/selftime/tracking"
)

// An Entry is one line of a report.
type Entry struct {
	ID       string        `json:"id"`
	ParentID string        `json:"parent_id,omitempty"`
	Depth    int           `json:"depth"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	SelfTime time.Duration `json:"self_ns"`
}

// ElapsedMillis returns the elapsed time in milliseconds.
func (e Entry) ElapsedMillis() int64 {
	return e.Elapsed.Milliseconds()
}

// SelfTimeMillis returns the self time in milliseconds.
func (e Entry) SelfTimeMillis() int64 {
	return e.SelfTime.Milliseconds()
}

// A Report lists the operations of a session in the order they began. Since
// operations nest, every entry is followed by its dependencies.
type Report struct {
	Entries []Entry `json:"operations"`
}

// FromTracker builds a report from the current state of a tracker.
func FromTracker(t *tracking.Tracker) Report {
	nodes := t.Metrics()
	r := Report{Entries: make([]Entry, 0, len(nodes))}

	for _, n := range nodes {
		parentID, _ := t.Parent(n.ID())
		r.Entries = append(r.Entries, Entry{
			ID:       n.ID(),
			ParentID: parentID,
			Depth:    depthOf(t, n.ID()),
			Elapsed:  n.Elapsed(),
			SelfTime: n.SelfTime(),
		})
	}

	return r
}

func depthOf(t *tracking.Tracker, id string) int {
	depth := 0
	for {
		parentID, ok := t.Parent(id)
		if !ok {
			return depth
		}

		depth++
		id = parentID
	}
}

// FromOperations builds a report from recorded operations.
func FromOperations(ops []tracing.OperationEntry) Report {
	r := Report{Entries: make([]Entry, 0, len(ops))}

	for _, op := range ops {
		r.Entries = append(r.Entries, Entry{
			ID:       op.ID,
			ParentID: op.ParentID,
			Depth:    op.Depth,
			Elapsed:  time.Duration(op.ElapsedNS),
			SelfTime: time.Duration(op.SelfNS),
		})
	}

	return r
}

// Total returns the sum of the elapsed time of the root operations.
func (r Report) Total() time.Duration {
	var total time.Duration
	for _, e := range r.Entries {
		if e.ParentID == "" {
			total += e.Elapsed
		}
	}

	return total
}

// Slowest returns the n entries with the longest self time, longest first.
// If n is not positive, all entries are returned.
func (r Report) Slowest(n int) []Entry {
	sorted := make([]Entry, len(r.Entries))
	copy(sorted, r.Entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SelfTime > sorted[j].SelfTime
	})

	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}

	return sorted
}
