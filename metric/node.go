// Package metric defines the timed node that a tracking session produces for
// every operation.
package metric

import (
	"sort"
	"time"
)

// A Node is the timing record of one operation. The elapsed time of a node
// covers the whole operation, including the operations it depends on.
type Node struct {
	id           string
	elapsed      time.Duration
	dependencies map[string]*Node
}

// NewNode creates a node with no elapsed time and no dependencies.
func NewNode(id string) *Node {
	return &Node{
		id:           id,
		dependencies: make(map[string]*Node),
	}
}

// ID returns the identifier of the operation.
func (n *Node) ID() string {
	return n.id
}

// Elapsed returns the raw duration measured for the operation.
func (n *Node) Elapsed() time.Duration {
	return n.elapsed
}

// ElapsedMillis returns the raw duration in whole milliseconds.
func (n *Node) ElapsedMillis() int64 {
	return n.elapsed.Milliseconds()
}

// SetElapsed overwrites the measured duration. The last write wins.
func (n *Node) SetElapsed(d time.Duration) {
	n.elapsed = d
}

// AddDependency records that the operation caused child to run. A child that
// shares its ID with an existing dependency replaces it.
func (n *Node) AddDependency(child *Node) {
	n.dependencies[child.id] = child
}

// Dependency looks up a direct dependency by ID.
func (n *Node) Dependency(id string) (*Node, bool) {
	d, ok := n.dependencies[id]
	return d, ok
}

// NumDependencies returns the number of direct dependencies.
func (n *Node) NumDependencies() int {
	return len(n.dependencies)
}

// Dependencies returns the direct dependencies sorted by ID.
func (n *Node) Dependencies() []*Node {
	deps := make([]*Node, 0, len(n.dependencies))
	for _, d := range n.dependencies {
		deps = append(deps, d)
	}

	sort.Slice(deps, func(i, j int) bool {
		return deps[i].id < deps[j].id
	})

	return deps
}

// SelfTime returns the elapsed time minus the elapsed time of the direct
// dependencies. Grandchildren are already part of their parent's elapsed time
// and are not subtracted again. The result is negative if a dependency
// reports more time than the node itself.
func (n *Node) SelfTime() time.Duration {
	self := n.elapsed
	for _, d := range n.dependencies {
		self -= d.elapsed
	}

	return self
}

// SelfTimeMillis returns the self time in whole milliseconds.
func (n *Node) SelfTimeMillis() int64 {
	return n.SelfTime().Milliseconds()
}
