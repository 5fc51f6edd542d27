// Package taskerr classifies errors surfaced by task operations so
// batch callers can route individual failures without aborting.
package taskerr

import (
	"errors"
	"fmt"
)

// Kind partitions errors into the categories callers branch on.
type Kind string

const (
	// KindValidation marks rule violations: depth exceeded, cycles,
	// missing parents, duplicate ids.
	KindValidation Kind = "validation"
	// KindNotFound marks lookups of unknown task ids.
	KindNotFound Kind = "not_found"
	// KindStorage marks persistence adapter failures.
	KindStorage Kind = "storage"
	// KindComputation marks malformed inputs to scoring, learning,
	// or decomposition.
	KindComputation Kind = "computation"
)

// Sentinel causes for validation and lookup failures.
var (
	ErrMaxDepthExceeded = errors.New("maximum hierarchy depth exceeded")
	ErrCycleDetected    = errors.New("circular dependency detected")
	ErrParentNotFound   = errors.New("parent task not found")
	ErrDuplicateID      = errors.New("duplicate task id")
	ErrTaskNotFound     = errors.New("task not found")
	ErrHasChildren      = errors.New("task has children; use cascade to remove them")
)

// Error is a classified task operation error.
type Error struct {
	// Kind is the error category.
	Kind Kind
	// Op names the operation that failed, e.g. "add_task".
	Op string
	// TaskID is the task involved, if any.
	TaskID string
	// Err is the underlying cause.
	Err error
	// Metadata carries structured context for the caller.
	Metadata map[string]string
}

func (e *Error) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.TaskID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithMeta attaches a metadata entry and returns the error for chaining.
func (e *Error) WithMeta(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Validation wraps err as a validation failure.
func Validation(op, taskID string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, TaskID: taskID, Err: err}
}

// NotFound reports that taskID does not exist.
func NotFound(op, taskID string) *Error {
	return &Error{Kind: KindNotFound, Op: op, TaskID: taskID, Err: ErrTaskNotFound}
}

// Storage wraps a persistence adapter failure.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// Computation wraps a malformed-input failure from an algorithm.
func Computation(op string, err error) *Error {
	return &Error{Kind: KindComputation, Op: op, Err: err}
}

// KindOf returns the kind of err, or the empty string if err is not
// a classified task error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is an unknown-id failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsStorage reports whether err is a persistence failure.
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// IsComputation reports whether err is an algorithm input failure.
func IsComputation(err error) bool { return KindOf(err) == KindComputation }

// Result is the structured outcome of one item in a batch operation.
// Failed items carry their classified error; the batch continues.
type Result struct {
	// Success is true if the item was processed.
	Success bool
	// Err is the classified failure, nil on success.
	Err *Error
	// Metadata carries operation-specific context.
	Metadata map[string]string
}

// OK returns a successful result.
func OK() Result {
	return Result{Success: true}
}

// Fail returns a failed result wrapping err.
func Fail(err *Error) Result {
	return Result{Success: false, Err: err}
}
