// Package tracking measures nested operations. A Tracker keeps a stack of the
// operations in progress; an operation that begins while another one is in
// progress becomes a dependency of it. When an operation ends, its elapsed
// time is recorded on its node, from which the self time follows.
//
// A Tracker serves a single logical call stack. Every Begin must be matched
// by an End, which callers guarantee with Track or Run:
//
//	defer tracker.Track("config")()
package tracking

import (
	"time"

	"github.com/sarchlab/selftime/metric"
	"github.com/sarchlab/selftime/timing"
)

type frame struct {
	id    string
	start time.Time
}

// Tracker is one tracking session.
type Tracker struct {
	*HookableBase

	timeTeller timing.TimeTeller

	stack   []frame
	order   []string
	nodes   map[string]*metric.Node
	parents map[string]string
}

// NewTracker creates an empty tracking session that samples the given clock.
func NewTracker(timeTeller timing.TimeTeller) *Tracker {
	return &Tracker{
		HookableBase: NewHookableBase(),
		timeTeller:   timeTeller,
		nodes:        make(map[string]*metric.Node),
		parents:      make(map[string]string),
	}
}

// Begin marks the start of an operation. If another operation is in progress,
// the new operation becomes its dependency.
//
// Beginning an ID again replaces its node but keeps its position in Metrics.
// The operations that depended on the replaced node lose their parent. This
// is only meaningful if the earlier operation with the same ID has ended.
// Every parent began before its dependencies, so parents never form a cycle.
func (t *Tracker) Begin(id string) {
	now := t.timeTeller.CurrentTime()

	node := metric.NewNode(id)
	if _, seen := t.nodes[id]; !seen {
		t.order = append(t.order, id)
	} else {
		t.detachDependencies(id)
	}
	t.nodes[id] = node
	delete(t.parents, id)

	parentID := ""
	if t.isDependencyOfAnotherOperation() && t.topID() != id {
		parentID = t.topID()
		t.nodes[parentID].AddDependency(node)
		t.parents[id] = parentID
	}

	depth := len(t.stack)
	t.stack = append(t.stack, frame{id: id, start: now})

	t.InvokeHook(HookCtx{
		Domain:   t,
		Pos:      HookPosOperationBegin,
		Node:     node,
		ParentID: parentID,
		Depth:    depth,
		Now:      now,
	})
}

func (t *Tracker) isDependencyOfAnotherOperation() bool {
	return len(t.stack) > 0
}

func (t *Tracker) topID() string {
	return t.stack[len(t.stack)-1].id
}

func (t *Tracker) detachDependencies(parentID string) {
	for id, p := range t.parents {
		if p == parentID {
			delete(t.parents, id)
		}
	}
}

// End marks the completion of an operation and records its elapsed time. The
// most recent frame with the given ID is removed from the stack, wherever it
// is. Ending an operation that is not in progress does nothing.
func (t *Tracker) End(id string) {
	i := t.findFrame(id)
	if i < 0 {
		return
	}

	now := t.timeTeller.CurrentTime()
	f := t.stack[i]
	t.stack = append(t.stack[:i], t.stack[i+1:]...)

	node := t.nodes[id]
	node.SetElapsed(now.Sub(f.start))

	t.InvokeHook(HookCtx{
		Domain:   t,
		Pos:      HookPosOperationEnd,
		Node:     node,
		ParentID: t.parents[id],
		Depth:    i,
		Now:      now,
	})
}

func (t *Tracker) findFrame(id string) int {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i].id == id {
			return i
		}
	}

	return -1
}

// OperationCount returns the number of distinct operations that have begun.
func (t *Tracker) OperationCount() int {
	return len(t.order)
}

// Metrics returns the nodes of all the operations that have begun, in the
// order they first began. The returned slice belongs to the caller.
func (t *Tracker) Metrics() []*metric.Node {
	nodes := make([]*metric.Node, 0, len(t.order))
	for _, id := range t.order {
		nodes = append(nodes, t.nodes[id])
	}

	return nodes
}

// Roots returns the nodes of the operations that began with nothing in
// progress, in the order they began.
func (t *Tracker) Roots() []*metric.Node {
	roots := make([]*metric.Node, 0)
	for _, id := range t.order {
		if _, hasParent := t.parents[id]; !hasParent {
			roots = append(roots, t.nodes[id])
		}
	}

	return roots
}

// Node returns the node of an operation.
func (t *Tracker) Node(id string) (*metric.Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Parent returns the ID of the operation that the given operation is a
// dependency of.
func (t *Tracker) Parent(id string) (string, bool) {
	p, ok := t.parents[id]
	return p, ok
}

// InProgress returns the IDs of the operations in progress, from the
// outermost to the innermost.
func (t *Tracker) InProgress() []string {
	ids := make([]string, len(t.stack))
	for i, f := range t.stack {
		ids[i] = f.id
	}

	return ids
}

// IsInProgress tells if an operation has begun and not ended yet.
func (t *Tracker) IsInProgress(id string) bool {
	return t.findFrame(id) >= 0
}

// Depth returns the number of operations in progress.
func (t *Tracker) Depth() int {
	return len(t.stack)
}
