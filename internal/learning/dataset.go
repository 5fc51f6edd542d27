// Package learning estimates task effort from completion history and
// keeps the estimation model tuned as new completions arrive.
package learning

import (
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Dataset bounds.
const (
	// DefaultCapacity is how many data points the dataset retains
	// before evicting the oldest.
	DefaultCapacity = 5000
	// DefaultMaxAge is how long a data point stays relevant.
	DefaultMaxAge = 365 * 24 * time.Hour
)

// Source records how a data point entered the dataset.
type Source string

// Data point sources.
const (
	SourceCompletion Source = "completion"
	SourceFeedback   Source = "feedback"
)

// DataPoint is one observed task outcome.
type DataPoint struct {
	// TaskID identifies the completed task.
	TaskID string
	// Type is the task's type at completion.
	Type models.TaskType
	// Complexity is the task's assessed complexity.
	Complexity models.Complexity
	// Domain is the metadata domain, empty when untagged.
	Domain string
	// Assignee is who completed the task, empty when unassigned.
	Assignee string
	// DependencyCount is how many dependencies the task declared.
	DependencyCount int
	// Tags carries the task's tags.
	Tags []string
	// EstimatedHours is the recorded estimate, 0 when none was set.
	EstimatedHours float64
	// ActualHours is the observed effort.
	ActualHours float64
	// Source records how the point was captured.
	Source Source
	// Weight scales the point's influence during training.
	Weight float64
	// RecordedAt is when the point entered the dataset.
	RecordedAt time.Time
}

// Dataset is a capped, age-bounded collection of data points. It is
// not safe for concurrent use; the Engine serializes access.
type Dataset struct {
	points   []DataPoint
	capacity int
	maxAge   time.Duration
	now      func() time.Time
}

// NewDataset creates a dataset with the given bounds. A zero maxAge
// disables age eviction.
func NewDataset(capacity int, maxAge time.Duration, now func() time.Time) *Dataset {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Dataset{capacity: capacity, maxAge: maxAge, now: now}
}

// Add appends a data point, stamping RecordedAt when unset, then
// evicts anything aged out or beyond capacity, oldest first.
func (d *Dataset) Add(p DataPoint) {
	if p.RecordedAt.IsZero() {
		p.RecordedAt = d.now()
	}
	if p.Weight <= 0 {
		p.Weight = 1
	}
	d.points = append(d.points, p)
	d.evict()
}

// evict drops aged-out points, then trims from the front down to
// capacity. Points are stored in arrival order, so the front is the
// oldest.
func (d *Dataset) evict() {
	if d.maxAge > 0 {
		cutoff := d.now().Add(-d.maxAge)
		kept := d.points[:0]
		for _, p := range d.points {
			if p.RecordedAt.After(cutoff) {
				kept = append(kept, p)
			}
		}
		d.points = kept
	}
	if excess := len(d.points) - d.capacity; excess > 0 {
		d.points = append(d.points[:0], d.points[excess:]...)
	}
}

// Points returns a copy of the current data points in arrival order.
func (d *Dataset) Points() []DataPoint {
	out := make([]DataPoint, len(d.points))
	copy(out, d.points)
	return out
}

// Len returns the number of retained data points.
func (d *Dataset) Len() int {
	return len(d.points)
}
