package scheduler

import (
	"context"
	"fmt"

	"github.com/utkarsh5026/parjoin/internal/types"
)

// SchedulingStrategy defines how submitted tasks reach workers.
type SchedulingStrategy[T any, R any] interface {
	// Submit enqueues a single task. It blocks while the queue is full and
	// fails with ErrSchedulerClosed once Shutdown has been called.
	Submit(task *types.SubmittedTask[T, R]) error

	// SubmitBatch enqueues tasks asynchronously, in order, and returns at once.
	// Returns the number of tasks accepted.
	SubmitBatch(tasks []*types.SubmittedTask[T, R]) (int, error)

	// Shutdown closes the strategy to new submissions. Tasks already accepted
	// (including pending SubmitBatch feeds) still reach the workers, after
	// which the worker loops return. It does not block.
	Shutdown()

	// Worker runs the loop of worker workerID until the strategy is shut down
	// and drained.
	Worker(ctx context.Context, workerID int64, executor types.ProcessFunc[T, R], resHandler types.ResultHandler[T, R]) error
}

// CreateSchedulingStrategy builds the strategy selected by conf.
func CreateSchedulingStrategy[T, R any](conf *ProcessorConfig[T, R]) (SchedulingStrategy[T, R], error) {
	if conf.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", conf.WorkerCount)
	}
	if conf.TaskBuffer < 0 {
		return nil, fmt.Errorf("task buffer must not be negative, got %d", conf.TaskBuffer)
	}

	switch conf.SchedulingStrategy {
	case SchedulingChannel:
		return newChannelStrategy(conf), nil
	case SchedulingShared:
		return newSharedStrategy(conf), nil
	default:
		return nil, fmt.Errorf("unknown scheduling strategy %d", conf.SchedulingStrategy)
	}
}
