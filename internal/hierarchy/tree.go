package hierarchy

import (
	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

// TreeNode is one task in a recursive hierarchy view, annotated with
// its relationships.
type TreeNode struct {
	// Task is a copy of the task at this node.
	Task *models.Task
	// Depth is the node's distance from the requested root.
	Depth int
	// DescendantCount is the number of tasks below this node.
	DescendantCount int
	// Dependencies are the IDs this task waits on.
	Dependencies []string
	// Dependents are the IDs waiting on this task.
	Dependents []string
	// Children are the child nodes, sorted by ID.
	Children []*TreeNode
}

// Hierarchy returns the recursive tree rooted at id, each node
// annotated with depth, descendant count, and its dependency
// relationships.
func (r *Registry) Hierarchy(id string) (*TreeNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.tasks[id]; !exists {
		return nil, taskerr.NotFound("get_task_hierarchy", id)
	}
	return r.buildNode(id, 0), nil
}

// buildNode assembles the subtree for one task. Caller holds at
// least a read lock.
func (r *Registry) buildNode(id string, depth int) *TreeNode {
	t := r.tasks[id]
	node := &TreeNode{
		Task:         t.Clone(),
		Depth:        depth,
		Dependencies: append([]string(nil), t.Dependencies...),
		Dependents:   r.dependentsOf(id),
	}
	for _, childID := range r.childIDs(id) {
		child := r.buildNode(childID, depth+1)
		node.Children = append(node.Children, child)
		node.DescendantCount += child.DescendantCount + 1
	}
	return node
}

// Walk visits the node and every descendant in depth-first order.
func (n *TreeNode) Walk(visit func(*TreeNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.Children {
		child.Walk(visit)
	}
}
