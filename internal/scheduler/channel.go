package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/utkarsh5026/parjoin/internal/types"
)

// channelStrategy distributes tasks to worker-specific channels in a
// round-robin fashion. Each worker goroutine reads only from its own channel.
type channelStrategy[T any, R any] struct {
	config    *ProcessorConfig[T, R]            // Processor configuration parameters.
	taskChans []chan *types.SubmittedTask[T, R] // Per-worker task channels.
	counter   atomic.Int64                      // Round-robin cursor.
	gate      submitGate
	closeOnce sync.Once
}

// newChannelStrategy creates one buffered channel per configured worker.
func newChannelStrategy[T any, R any](conf *ProcessorConfig[T, R]) *channelStrategy[T, R] {
	n := max(conf.WorkerCount, 1)
	c := &channelStrategy[T, R]{
		config:    conf,
		taskChans: make([]chan *types.SubmittedTask[T, R], n),
	}

	for i := range n {
		c.taskChans[i] = make(chan *types.SubmittedTask[T, R], conf.TaskBuffer)
	}

	return c
}

// Submit sends a single task to the next worker channel.
func (s *channelStrategy[T, R]) Submit(task *types.SubmittedTask[T, R]) error {
	if !s.gate.enter() {
		return ErrSchedulerClosed
	}
	defer s.gate.leave()

	s.taskChans[s.next()] <- task
	return nil
}

// SubmitBatch feeds tasks from a background goroutine and returns immediately.
func (s *channelStrategy[T, R]) SubmitBatch(tasks []*types.SubmittedTask[T, R]) (int, error) {
	if !s.gate.enter() {
		return 0, ErrSchedulerClosed
	}

	go func() {
		defer s.gate.leave()
		for _, task := range tasks {
			s.taskChans[s.next()] <- task
		}
	}()
	return len(tasks), nil
}

// Shutdown rejects new submissions and closes the worker channels once
// every accepted task has been enqueued.
func (s *channelStrategy[T, R]) Shutdown() {
	s.gate.close(func() {
		s.closeOnce.Do(func() {
			for _, ch := range s.taskChans {
				close(ch)
			}
		})
	})
}

// Worker consumes the dedicated channel of workerID until it is closed.
// Cancelling ctx does not stop the loop: queued tasks still run and observe
// the cancelled context themselves.
func (s *channelStrategy[T, R]) Worker(ctx context.Context, workerID int64, executor types.ProcessFunc[T, R], h types.ResultHandler[T, R]) error {
	defer startWorker(s.config, workerID)()

	for t := range s.taskChans[workerID%int64(len(s.taskChans))] {
		_ = executeSubmitted(ctx, t, s.config, executor, h)
	}
	return nil
}

// next returns the next channel index in a round-robin fashion.
func (s *channelStrategy[T, R]) next() int64 {
	return (s.counter.Add(1) - 1) % int64(len(s.taskChans))
}
