package scheduler

import (
	"context"
	"sync"

	"github.com/utkarsh5026/parjoin/internal/types"
)

// sharedStrategy feeds all workers from a single FIFO channel, so an idle
// worker always picks up the oldest queued task.
type sharedStrategy[T any, R any] struct {
	config    *ProcessorConfig[T, R]
	taskChan  chan *types.SubmittedTask[T, R]
	gate      submitGate
	closeOnce sync.Once
}

func newSharedStrategy[T any, R any](conf *ProcessorConfig[T, R]) *sharedStrategy[T, R] {
	return &sharedStrategy[T, R]{
		config:   conf,
		taskChan: make(chan *types.SubmittedTask[T, R], conf.TaskBuffer),
	}
}

func (s *sharedStrategy[T, R]) Submit(task *types.SubmittedTask[T, R]) error {
	if !s.gate.enter() {
		return ErrSchedulerClosed
	}
	defer s.gate.leave()

	s.taskChan <- task
	return nil
}

func (s *sharedStrategy[T, R]) SubmitBatch(tasks []*types.SubmittedTask[T, R]) (int, error) {
	if !s.gate.enter() {
		return 0, ErrSchedulerClosed
	}

	go func() {
		defer s.gate.leave()
		for _, task := range tasks {
			s.taskChan <- task
		}
	}()
	return len(tasks), nil
}

func (s *sharedStrategy[T, R]) Shutdown() {
	s.gate.close(func() {
		s.closeOnce.Do(func() { close(s.taskChan) })
	})
}

func (s *sharedStrategy[T, R]) Worker(ctx context.Context, workerID int64, executor types.ProcessFunc[T, R], h types.ResultHandler[T, R]) error {
	defer startWorker(s.config, workerID)()

	for t := range s.taskChan {
		_ = executeSubmitted(ctx, t, s.config, executor, h)
	}
	return nil
}
