package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/parjoin/internal/cpu"
	"github.com/utkarsh5026/parjoin/internal/types"
)

var (
	ErrSchedulerClosed error = errors.New("scheduler is closed")
)

// submitGate tracks in-flight submissions so Shutdown can close the task
// queues only after every accepted task has been enqueued.
type submitGate struct {
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// enter registers a submission. It returns false once the gate is closed.
func (g *submitGate) enter() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return false
	}
	g.wg.Add(1)
	return true
}

func (g *submitGate) leave() {
	g.wg.Done()
}

// close rejects further submissions and runs finish once the pending ones are done.
// Only the first call has an effect.
func (g *submitGate) close(finish func()) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	go func() {
		g.wg.Wait()
		finish()
	}()
}

// startWorker applies per-worker setup and returns the matching teardown.
func startWorker[T, R any](conf *ProcessorConfig[T, R], workerID int64) func() {
	log := conf.logger().WithField("worker", workerID)
	log.Debug("worker started")

	if !conf.PinWorkers {
		return func() { log.Debug("worker stopped") }
	}

	release, core, err := cpu.Pin(int(workerID))
	if err != nil {
		log.WithError(err).Warn("could not pin worker to a core")
	} else {
		log.WithField("core", core).Debug("worker pinned")
	}

	return func() {
		release()
		log.Debug("worker stopped")
	}
}

// executeSubmitted runs a submitted task and hands the result to the handler.
func executeSubmitted[T, R any](
	ctx context.Context,
	s *types.SubmittedTask[T, R],
	conf *ProcessorConfig[T, R],
	executor types.ProcessFunc[T, R],
	handler types.ResultHandler[T, R],
) error {
	result, err := Execute(ctx, conf, s.Task, executor)
	conf.logger().WithFields(logrus.Fields{
		"task":   s.Id,
		"failed": err != nil,
	}).Debug("task finished")
	handler(s, types.NewResult(result, s.Id, err))
	return err
}

// Execute encapsulates the common logic for running one task: rate limiting,
// hooks and panic recovery. It is shared by pooled workers and standalone tasks.
func Execute[T, R any](
	ctx context.Context,
	conf *ProcessorConfig[T, R],
	task T,
	processFn types.ProcessFunc[T, R],
) (R, error) {
	if conf.RateLimiter != nil {
		if err := conf.RateLimiter.Wait(ctx); err != nil {
			var zero R
			// Rate limiter's error doesn't wrap context errors, so check context explicitly
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			return zero, err
		}
	}

	if conf.BeforeTaskStart != nil {
		conf.BeforeTaskStart(task)
	}

	result, err := processWithRecovery(ctx, task, processFn)

	if conf.OnTaskEnd != nil {
		conf.OnTaskEnd(task, result, err)
	}

	return result, err
}

// processWithRecovery executes a task with panic recovery.
// If a panic occurs, it's converted to an error to prevent crashing the worker.
func processWithRecovery[T, R any](
	ctx context.Context,
	task T,
	processFn types.ProcessFunc[T, R],
) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("worker panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	return processFn(ctx, task)
}
