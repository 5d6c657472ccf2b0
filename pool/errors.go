package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrResolution reports a descriptor that cannot be turned into a call:
	// no callable, a method without target, a missing method or mismatched
	// argument names.
	ErrResolution = errors.New("pool: cannot resolve callable")

	// ErrWorker matches every *WorkerError.
	ErrWorker = errors.New("pool: task failed")

	// ErrInvalidArgument reports bad input such as a non-positive partition
	// count or draining a read-only handle set.
	ErrInvalidArgument = errors.New("pool: invalid argument")

	// ErrInvalidState reports an operation the batch no longer accepts, such
	// as joining a closed batch or extending one that has been closed.
	ErrInvalidState = errors.New("pool: invalid state")
)

// WorkerError wraps the failure of a single task.
// Index is the submission index inside its batch, or -1 for standalone tasks.
type WorkerError struct {
	Index int
	ID    string
	Err   error
}

func (e *WorkerError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("pool: task %d (%s) failed: %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("pool: task %s failed: %v", e.ID, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrWorker) match any WorkerError.
func (e *WorkerError) Is(target error) bool {
	return target == ErrWorker
}

func resolutionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResolution, fmt.Sprintf(format, args...))
}
