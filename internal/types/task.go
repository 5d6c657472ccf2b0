package types

import "context"

// ProcessFunc is a function type that defines how individual tasks are processed by a worker.
// It takes a context and a task of type T, returning a result of type R.
type ProcessFunc[T any, R any] func(ctx context.Context, task T) (R, error)

// Result represents the outcome of processing a single task.
//
// Fields:
//   - Value: The result produced by processing the task (only valid if Error is nil)
//   - Key: Identifies the task that produced it (submission index, id, ...)
//   - Error: Any error that occurred during task processing (nil if successful)
type Result[R any, K comparable] struct {
	Value R
	Key   K
	Error error
}

// NewResult builds a Result.
func NewResult[R any, K comparable](value R, key K, err error) *Result[R, K] {
	return &Result[R, K]{Value: value, Key: key, Error: err}
}

// SubmittedTask is a unit of work travelling through a scheduler.
// Id is the submission index inside its batch.
type SubmittedTask[T, R any] struct {
	Task   T
	Id     int64
	Future *Future[R, int64]
}

// NewSubmittedTask pairs a task with its index and (optional) future.
func NewSubmittedTask[T, R any](task T, id int64, future *Future[R, int64]) *SubmittedTask[T, R] {
	return &SubmittedTask[T, R]{
		Task:   task,
		Id:     id,
		Future: future,
	}
}

// ResultHandler receives each finished task together with its result.
// It is called from the worker goroutine that ran the task.
type ResultHandler[T, R any] func(task *SubmittedTask[T, R], result *Result[R, int64])
