// Package tracing provides tracers that observe a tracking session while it
// runs. A tracer is attached to a session with CollectTrace and is notified
// whenever an operation begins or ends.
package tracing

import (
	"fmt"
	"reflect"
	"time"

	"github.com/sarchlab/selftime/tracking"
)

// An Operation is what a tracer learns about an operation. StartTime is set
// on both notifications. EndTime, Elapsed and SelfTime are only set when the
// operation ends.
type Operation struct {
	ID        string        `json:"id"`
	ParentID  string        `json:"parent_id"`
	Depth     int           `json:"depth"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Elapsed   time.Duration `json:"elapsed"`
	SelfTime  time.Duration `json:"self_time"`
}

// OperationFilter is a function that can filter interesting operations. If
// this function returns true, the operation is considered useful.
type OperationFilter func(op Operation) bool

// RootsOnly is an OperationFilter that keeps the operations that no other
// operation depends on.
func RootsOnly(op Operation) bool {
	return op.ParentID == ""
}

// A Tracer can collect operation traces
type Tracer interface {
	StartOperation(op Operation)
	EndOperation(op Operation)
}

// CollectTrace lets the tracer collect the operations of a session. Attaching
// the same tracer twice panics.
func CollectTrace(domain tracking.Hookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"tracer %s is already collecting", reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook is a hook that traces operations
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx tracking.HookCtx) {
	op := Operation{
		ID:       ctx.Node.ID(),
		ParentID: ctx.ParentID,
		Depth:    ctx.Depth,
	}

	switch ctx.Pos {
	case tracking.HookPosOperationBegin:
		op.StartTime = ctx.Now
		h.t.StartOperation(op)
	case tracking.HookPosOperationEnd:
		op.EndTime = ctx.Now
		op.Elapsed = ctx.Node.Elapsed()
		op.StartTime = ctx.Now.Add(-op.Elapsed)
		op.SelfTime = ctx.Node.SelfTime()
		h.t.EndOperation(op)
	}
}
