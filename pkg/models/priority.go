package models

// Priority represents the ordered priority level of a task.
type Priority string

const (
	// PriorityLow is the lowest priority.
	PriorityLow Priority = "low"
	// PriorityMedium is routine work.
	PriorityMedium Priority = "medium"
	// PriorityHigh is work that should be picked up soon.
	PriorityHigh Priority = "high"
	// PriorityUrgent is work that should preempt routine tasks.
	PriorityUrgent Priority = "urgent"
	// PriorityCritical is the highest priority.
	PriorityCritical Priority = "critical"
)

var priorityOrder = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityUrgent:   3,
	PriorityCritical: 4,
}

// Priorities returns all priority levels in ascending order.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent, PriorityCritical}
}

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	_, ok := priorityOrder[p]
	return ok
}

// Ordinal returns the position of the priority in the ordered scale,
// or -1 for unknown values.
func (p Priority) Ordinal() int {
	if n, ok := priorityOrder[p]; ok {
		return n
	}
	return -1
}

// StepsFrom returns the signed ordinal distance from other to p.
// Positive means p is higher than other. Unknown values count as low.
func (p Priority) StepsFrom(other Priority) int {
	po, oo := p.Ordinal(), other.Ordinal()
	if po < 0 {
		po = 0
	}
	if oo < 0 {
		oo = 0
	}
	return po - oo
}

// PriorityFromOrdinal returns the priority at the given position,
// clamping out-of-range values to the nearest end of the scale.
func PriorityFromOrdinal(n int) Priority {
	all := Priorities()
	if n < 0 {
		return all[0]
	}
	if n >= len(all) {
		return all[len(all)-1]
	}
	return all[n]
}
