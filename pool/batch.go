package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/parjoin/internal/scheduler"
	"github.com/utkarsh5026/parjoin/internal/types"
)

// BatchState is the lifecycle stage of a Batch.
type BatchState int32

const (
	// StateDispatching accepts new tasks through Extend.
	StateDispatching BatchState = iota
	// StatePolling is closed to new tasks; a join is waiting for completion.
	StatePolling
	// StateDraining has every task finished; workers are shutting down.
	StateDraining
	// StateClosed has been joined. It cannot be joined again.
	StateClosed
)

func (s BatchState) String() string {
	switch s {
	case StateDispatching:
		return "dispatching"
	case StatePolling:
		return "polling"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("BatchState(%d)", int32(s))
	}
}

// Batch is a set of tasks submitted together and running on a worker pool of
// its own. Results are correlated to submission order.
//
// A batch must be either joined with Join or closed with Close, otherwise
// its workers never exit.
type Batch struct {
	id          string
	desc        string
	logger      logrus.FieldLogger
	strategy    scheduler.SchedulingStrategy[*taskEnvelope, any]
	workersDone chan struct{}

	mu        sync.Mutex
	tasks     []*Task
	remaining int
	idle      chan struct{} // closed while remaining == 0

	state   atomic.Int32
	joining atomic.Bool
}

// ID returns the batch's unique identifier.
func (b *Batch) ID() string { return b.id }

// Description returns the label used for progress output.
func (b *Batch) Description() string { return b.desc }

// State returns the current lifecycle stage.
func (b *Batch) State() BatchState { return BatchState(b.state.Load()) }

// Len returns the number of tasks submitted so far.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tasks)
}

// Remaining returns how many submitted tasks have not finished yet.
// For a fixed set of tasks it never increases.
func (b *Batch) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// IsReady reports whether every submitted task has finished.
func (b *Batch) IsReady() bool {
	return b.Remaining() == 0
}

// Wait blocks for at most timeout until the batch is ready and reports
// whether it is. A non-positive timeout only checks.
func (b *Batch) Wait(timeout time.Duration) bool {
	ready, _ := b.waitCtx(context.Background(), timeout)
	return ready
}

// Handle returns the task at submission index i, or nil if out of range.
func (b *Batch) Handle(i int) *Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.tasks) {
		return nil
	}
	return b.tasks[i]
}

// Handles returns the tasks in submission order. Each can be queried on its
// own, which allows partial retrieval when some tasks fail.
func (b *Batch) Handles() []*Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Task(nil), b.tasks...)
}

// Collect blocks until the batch is ready and returns the results in
// submission order. If any task failed, the error of the lowest failing index
// is returned as a *WorkerError along with the partial results.
func (b *Batch) Collect() ([]any, error) {
	for {
		b.mu.Lock()
		idle := b.idle
		b.mu.Unlock()

		<-idle
		if b.IsReady() {
			break
		}
	}

	tasks := b.Handles()
	results := make([]any, len(tasks))
	var firstErr error
	for i, t := range tasks {
		v, err := t.Result()
		results[i] = v
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// Extend adds tasks to a batch that is still dispatching. Once the batch has
// been closed it fails with ErrInvalidState.
func (b *Batch) Extend(descs ...Descriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if st := b.State(); st != StateDispatching {
		return fmt.Errorf("%w: cannot submit to batch %s: it is %s", ErrInvalidState, b.id, st)
	}
	if len(descs) == 0 {
		return nil
	}

	start := len(b.tasks)
	subs := make([]*types.SubmittedTask[*taskEnvelope, any], len(descs))
	added := make([]*Task, len(descs))
	for i, d := range descs {
		t := newTask(start + i)
		added[i] = t
		env := &taskEnvelope{desc: d, index: t.index, id: t.id}
		subs[i] = types.NewSubmittedTask(env, int64(t.index), t.future)
	}

	if _, err := b.strategy.SubmitBatch(subs); err != nil {
		return fmt.Errorf("%w: batch %s: %v", ErrInvalidState, b.id, err)
	}

	if b.remaining == 0 {
		b.idle = make(chan struct{})
	}
	b.tasks = append(b.tasks, added...)
	b.remaining += len(descs)

	b.logger.WithFields(logrus.Fields{
		"added": len(descs),
		"total": len(b.tasks),
	}).Debug("tasks submitted")
	return nil
}

// Close stops the batch from accepting new tasks. Already submitted tasks
// keep running. Closing twice is a no-op.
func (b *Batch) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state.CompareAndSwap(int32(StateDispatching), int32(StatePolling)) {
		b.strategy.Shutdown()
		b.logger.WithField("tasks", len(b.tasks)).Debug("batch closed to new tasks")
	}
}

// handle is the scheduler's result handler: it completes the task's future
// and then counts it as finished.
func (b *Batch) handle(st *types.SubmittedTask[*taskEnvelope, any], r *types.Result[any, int64]) {
	st.Future.Complete(*r)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining--
	if b.remaining == 0 {
		close(b.idle)
	}
}

// waitCtx waits up to timeout for the batch to become ready.
func (b *Batch) waitCtx(ctx context.Context, timeout time.Duration) (bool, error) {
	b.mu.Lock()
	idle := b.idle
	b.mu.Unlock()

	if timeout <= 0 {
		select {
		case <-idle:
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
		return b.IsReady(), nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-idle:
	case <-timer.C:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return b.IsReady(), nil
}
