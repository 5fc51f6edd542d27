package hierarchy

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/gantrylabs/gantry/pkg/models"
)

// For any forest built through AddTask, every task's level equals its
// parent's level plus one (zero for roots) and never exceeds the
// configured maximum.
func TestRegistryDepthInvariantHolds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxDepth := rapid.IntRange(2, 6).Draw(rt, "maxDepth")
		r := NewRegistry(WithMaxDepth(maxDepth))

		numTasks := rapid.IntRange(1, 40).Draw(rt, "numTasks")
		var ids []string
		for i := 0; i < numTasks; i++ {
			id := fmt.Sprintf("task-%03d", i)
			parent := ""
			if len(ids) > 0 && rapid.Bool().Draw(rt, fmt.Sprintf("hasParent_%d", i)) {
				parent = rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("parent_%d", i))
			}

			err := r.AddTask(&models.Task{ID: id, Title: id, ParentID: parent})
			if err != nil {
				// The only acceptable rejection here is the depth bound.
				if parent == "" || r.Depth(parent)+1 <= maxDepth {
					rt.Fatalf("unexpected AddTask error: %v", err)
				}
				continue
			}
			ids = append(ids, id)

			got := r.Depth(id)
			want := 0
			if parent != "" {
				want = r.Depth(parent) + 1
			}
			if got != want {
				rt.Errorf("Depth(%s) = %d, want %d", id, got, want)
			}
			if got > maxDepth {
				rt.Errorf("Depth(%s) = %d exceeds max %d", id, got, maxDepth)
			}
		}
	})
}

// For any sequence of accepted dependency updates, no task can reach
// itself through the transitive dependency closure.
func TestRegistryDependencyClosureNeverContainsSelf(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := NewRegistry()

		numTasks := rapid.IntRange(2, 15).Draw(rt, "numTasks")
		var ids []string
		for i := 0; i < numTasks; i++ {
			id := fmt.Sprintf("task-%03d", i)
			if err := r.AddTask(&models.Task{ID: id, Title: id}); err != nil {
				rt.Fatalf("AddTask: %v", err)
			}
			ids = append(ids, id)
		}

		numUpdates := rapid.IntRange(1, 30).Draw(rt, "numUpdates")
		for i := 0; i < numUpdates; i++ {
			target := rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("target_%d", i))
			depCount := rapid.IntRange(0, 4).Draw(rt, fmt.Sprintf("depCount_%d", i))
			deps := make([]string, 0, depCount)
			for j := 0; j < depCount; j++ {
				deps = append(deps, rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("dep_%d_%d", i, j)))
			}

			// Rejected updates are fine; accepted ones must keep the
			// graph acyclic.
			_, _ = r.UpdateTask(target, TaskUpdate{Dependencies: &deps})
		}

		for _, id := range ids {
			if reachesSelf(r, id) {
				rt.Errorf("task %s appears in its own dependency closure", id)
			}
		}

		if g, err := r.Graph(); err != nil {
			rt.Errorf("graph over accepted state should build cleanly: %v", err)
		} else if g.HasCycle() {
			rt.Error("graph over accepted state reports a cycle")
		}
	})
}

// reachesSelf walks the dependency closure of id looking for id.
func reachesSelf(r *Registry, id string) bool {
	start, ok := r.Get(id)
	if !ok {
		return false
	}
	visited := make(map[string]bool)
	stack := append([]string(nil), start.Dependencies...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == id {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if task, ok := r.Get(cur); ok {
			stack = append(stack, task.Dependencies...)
		}
	}
	return false
}
