// Package planner implements the hierarchical goal planner: an
// arena-allocated DAG of subgoals addressed by integer handles (never raw
// pointers, so there is no way to build a cycle by mistake), plus a
// Beta(1,1) posterior over execution strategies used to pick how the next
// subgoal should be attempted.
package planner

import "fmt"

// NodeID is an arena index. The zero value is never a valid node (nodes are
// 1-indexed) so a zero NodeID reliably means "no node".
type NodeID int

const (
	// MaxDepth bounds how many levels of decomposition a goal may have.
	MaxDepth = 5
	// MaxFanout bounds how many subgoals a single node may decompose into.
	MaxFanout = 7
)

type node struct {
	goal     string
	parent   NodeID
	children []NodeID
	depth    int
	done     bool
}

// DAG is the arena: nodes live in a single slice and refer to each other by
// index, so the whole structure can be copied, serialized, or reset without
// chasing pointers.
type DAG struct {
	nodes []node
	root  NodeID
}

// NewDAG creates a DAG with a single root node holding the top-level goal.
func NewDAG(goal string) *DAG {
	d := &DAG{nodes: make([]node, 0, 8)}
	d.nodes = append(d.nodes, node{}) // index 0 unused, keeps NodeID 1-indexed
	d.nodes = append(d.nodes, node{goal: goal, depth: 1})
	d.root = 1
	return d
}

// Root returns the top-level goal's NodeID.
func (d *DAG) Root() NodeID { return d.root }

func (d *DAG) get(id NodeID) (*node, error) {
	if int(id) <= 0 || int(id) >= len(d.nodes) {
		return nil, fmt.Errorf("planner: invalid node handle %d", id)
	}
	return &d.nodes[id], nil
}

// Goal returns a node's subgoal text.
func (d *DAG) Goal(id NodeID) (string, error) {
	n, err := d.get(id)
	if err != nil {
		return "", err
	}
	return n.goal, nil
}

// AddChild decomposes parent into one more subgoal, enforcing both the
// depth and fanout bounds by construction: a call past either bound is
// rejected rather than silently truncated.
func (d *DAG) AddChild(parent NodeID, goal string) (NodeID, error) {
	p, err := d.get(parent)
	if err != nil {
		return 0, err
	}
	if p.depth >= MaxDepth {
		return 0, fmt.Errorf("planner: node %d is already at max depth %d", parent, MaxDepth)
	}
	if len(p.children) >= MaxFanout {
		return 0, fmt.Errorf("planner: node %d already has max fanout %d", parent, MaxFanout)
	}

	d.nodes = append(d.nodes, node{goal: goal, parent: parent, depth: p.depth + 1})
	id := NodeID(len(d.nodes) - 1)

	// Re-fetch p since append may have reallocated the backing array.
	pp, _ := d.get(parent)
	pp.children = append(pp.children, id)

	return id, nil
}

// Children returns a node's direct children, in the order they were added.
func (d *DAG) Children(id NodeID) ([]NodeID, error) {
	n, err := d.get(id)
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out, nil
}

// MarkDone flags a node complete.
func (d *DAG) MarkDone(id NodeID) error {
	n, err := d.get(id)
	if err != nil {
		return err
	}
	n.done = true
	return nil
}

// IsDone reports a node's completion state.
func (d *DAG) IsDone(id NodeID) (bool, error) {
	n, err := d.get(id)
	if err != nil {
		return false, err
	}
	return n.done, nil
}

// Depth returns a node's depth (root is depth 1).
func (d *DAG) Depth(id NodeID) (int, error) {
	n, err := d.get(id)
	if err != nil {
		return 0, err
	}
	return n.depth, nil
}

// firstUnfinishedLeaf walks the DAG depth-first from start and returns the
// first node, in pre-order, that has no children and is not done. Nodes
// with children are only a container; the frontier is always a leaf.
func (d *DAG) firstUnfinishedLeaf(start NodeID) (NodeID, bool) {
	n, err := d.get(start)
	if err != nil {
		return 0, false
	}
	if len(n.children) == 0 {
		if !n.done {
			return start, true
		}
		return 0, false
	}
	for _, child := range n.children {
		if id, ok := d.firstUnfinishedLeaf(child); ok {
			return id, true
		}
	}
	return 0, false
}
