package pool

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/utkarsh5026/parjoin/internal/types"
)

// Task is a handle to one in-flight task, either a member of a Batch or a
// standalone task started with Dispatcher.Spawn.
type Task struct {
	id     string
	index  int
	future *types.Future[any, int64]
}

func newTask(index int) *Task {
	return &Task{
		id:     ulid.Make().String(),
		index:  index,
		future: types.NewFuture[any, int64](),
	}
}

// ID returns the task's unique identifier.
func (t *Task) ID() string { return t.id }

// Index returns the submission index inside the batch, or -1 for spawned tasks.
func (t *Task) Index() int { return t.index }

// IsReady reports whether the task has finished.
func (t *Task) IsReady() bool { return t.future.IsReady() }

// Done returns a channel closed when the task finishes.
func (t *Task) Done() <-chan struct{} { return t.future.Done() }

// Result blocks until the task finishes. A task failure is returned as a
// *WorkerError.
func (t *Task) Result() (any, error) {
	v, _, err := t.future.Get()
	return v, t.wrap(err)
}

// ResultContext is Result bounded by ctx. Expiry of ctx does not affect the task.
func (t *Task) ResultContext(ctx context.Context) (any, error) {
	select {
	case <-t.future.Done():
		return t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryResult returns the result without blocking; ok is false while running.
func (t *Task) TryResult() (value any, err error, ok bool) {
	v, _, err, ready := t.future.TryGet()
	if !ready {
		return nil, nil, false
	}
	return v, t.wrap(err), true
}

func (t *Task) wrap(err error) error {
	if err == nil {
		return nil
	}
	return &WorkerError{Index: t.index, ID: t.id, Err: err}
}

// taskEnvelope is what travels through the scheduler: the caller's
// descriptor plus the identity of the task it belongs to.
type taskEnvelope struct {
	desc  Descriptor
	index int
	id    string
}

// runEnvelope is the worker-side proxy: it resolves the descriptor in the
// worker and invokes the result.
func runEnvelope(ctx context.Context, e *taskEnvelope) (any, error) {
	call, err := Resolve(e.desc)
	if err != nil {
		return nil, err
	}
	return call(ctx)
}
