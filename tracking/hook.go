package tracking

import (
	"time"

	"github.com/sarchlab/selftime/metric"
)

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// The positions that a Tracker invokes its hooks at.
var (
	HookPosOperationBegin = &HookPos{Name: "OperationBegin"}
	HookPosOperationEnd   = &HookPos{Name: "OperationEnd"}
)

// HookCtx describes the operation that a hook is triggered for.
type HookCtx struct {
	// Domain is the hookable object that is raising this hook.
	Domain Hookable

	// Pos tells whether the operation has just begun or just ended.
	Pos *HookPos

	// Node is the node of the operation. At HookPosOperationEnd its elapsed
	// time is already set and all its dependencies have completed.
	Node *metric.Node

	// ParentID is the ID of the operation that the node is a dependency of.
	// It is empty for root operations.
	ParentID string

	// Depth is the number of operations in progress below this one.
	Depth int

	// Now is the clock sample taken for the event.
	Now time.Time
}

// A Hook observes a tracking session. Func is called with the tracker's
// state already updated for the operation named in the context.
type Hook interface {
	Func(ctx HookCtx)
}

// Hookable is a session that hooks can be attached to.
type Hookable interface {
	// AcceptHook attaches a hook. Hooks are attached before the first
	// operation begins and stay attached.
	AcceptHook(hook Hook)

	// NumHooks returns the number of attached hooks.
	NumHooks() int

	// Hooks returns the attached hooks in the order they were attached.
	Hooks() []Hook

	// InvokeHook calls every attached hook with ctx.
	InvokeHook(ctx HookCtx)
}

// HookableBase keeps the hooks of a session. Embedding it makes a type
// Hookable.
type HookableBase struct {
	hooks []Hook
}

// NewHookableBase creates a HookableBase without hooks.
func NewHookableBase() *HookableBase {
	return &HookableBase{}
}

// NumHooks returns the number of attached hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns a copy of the attached hooks.
func (h *HookableBase) Hooks() []Hook {
	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)

	return hooks
}

// AcceptHook attaches a hook. Attaching the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	if h.isAttached(hook) {
		panic("hook is already attached")
	}

	h.hooks = append(h.hooks, hook)
}

func (h *HookableBase) isAttached(hook Hook) bool {
	for _, attached := range h.hooks {
		if attached == hook {
			return true
		}
	}

	return false
}

// InvokeHook calls the attached hooks in order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
