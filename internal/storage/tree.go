package storage

import (
	"github.com/gantrylabs/gantry/pkg/models"
)

// BuildTree assembles the subtree rooted at root from a parent-id
// index, descending at most depth child levels; depth < 0 means
// unlimited. Node tasks are copies.
func BuildTree(root *models.Task, byParent map[string][]*models.Task, depth int) *TreeNode {
	node := &TreeNode{Task: root.Clone()}
	node.Task.Children = nil
	if depth == 0 {
		return node
	}
	for _, child := range byParent[root.ID] {
		node.Children = append(node.Children, BuildTree(child, byParent, depth-1))
	}
	return node
}

// Flatten returns the tree's tasks in depth-first order.
func (n *TreeNode) Flatten() []*models.Task {
	if n == nil {
		return nil
	}
	out := []*models.Task{n.Task}
	for _, child := range n.Children {
		out = append(out, child.Flatten()...)
	}
	return out
}

// Count returns the number of tasks in the tree.
func (n *TreeNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}
