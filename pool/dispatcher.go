package pool

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/parjoin/internal/scheduler"
	"github.com/utkarsh5026/parjoin/internal/types"
	"golang.org/x/sync/errgroup"
)

// Dispatcher submits descriptors for parallel execution. Every batch gets a
// worker pool of its own, sized by WithWorkerCount. A Dispatcher is safe for
// concurrent use and holds no per-batch state.
type Dispatcher struct {
	conf *config
	pc   *scheduler.ProcessorConfig[*taskEnvelope, any]
}

// NewDispatcher creates a dispatcher with the given options.
//
// Example:
//
//	d := pool.NewDispatcher(
//	    pool.WithWorkerCount(8),
//	    pool.WithRateLimit(100, 10),
//	)
func NewDispatcher(opts ...Option) *Dispatcher {
	conf := newConfig(opts...)
	return &Dispatcher{conf: conf, pc: conf.processorConfig()}
}

// WorkerCount returns the number of workers started per batch.
func (d *Dispatcher) WorkerCount() int { return d.conf.workerCount }

// Submit starts a worker pool for descs and returns without waiting for any
// task. Tasks are fed to the workers in order; descs[i] corresponds to
// index i of the batch's results.
//
// ctx is handed to every task. Cancelling it does not stop the workers:
// tasks already queued still run and see the cancelled context.
func (d *Dispatcher) Submit(ctx context.Context, descs []Descriptor) (*Batch, error) {
	strategy, err := scheduler.CreateSchedulingStrategy(d.pc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	id := ulid.Make().String()
	b := &Batch{
		id:          id,
		desc:        describe(descs),
		logger:      d.conf.logger.WithField("batch", id),
		strategy:    strategy,
		workersDone: make(chan struct{}),
		idle:        make(chan struct{}),
	}
	close(b.idle)

	var g errgroup.Group
	for i := range d.pc.WorkerCount {
		workerID := int64(i)
		g.Go(func() error {
			return strategy.Worker(ctx, workerID, runEnvelope, b.handle)
		})
	}
	go func() {
		if err := g.Wait(); err != nil {
			b.logger.WithError(err).Debug("worker reported an error")
		}
		close(b.workersDone)
	}()

	b.logger.WithFields(logrus.Fields{
		"workers":  d.pc.WorkerCount,
		"strategy": d.pc.SchedulingStrategy,
		"tasks":    len(descs),
	}).Debug("batch started")

	if err := b.Extend(descs...); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Spawn runs d on a goroutine of its own, outside any batch, and returns its
// handle. Spawned tasks are the usual input of JoinUnordered. They share the
// dispatcher's rate limiter and hooks; their Index is -1.
func (d *Dispatcher) Spawn(ctx context.Context, desc Descriptor) *Task {
	t := newTask(-1)
	env := &taskEnvelope{desc: desc, index: t.index, id: t.id}

	go func() {
		v, err := scheduler.Execute(ctx, d.pc, env, runEnvelope)
		d.conf.logger.WithFields(logrus.Fields{
			"task":   t.id,
			"failed": err != nil,
		}).Debug("spawned task finished")
		t.future.Complete(*types.NewResult[any, int64](v, -1, err))
	}()
	return t
}

// SpawnAll spawns every descriptor and returns the handles as a drainable set.
func (d *Dispatcher) SpawnAll(ctx context.Context, descs []Descriptor) *Set[*Task] {
	set := NewSet[*Task]()
	for _, desc := range descs {
		set.Add(d.Spawn(ctx, desc))
	}
	return set
}

// describe derives the default progress label from the first descriptor.
func describe(descs []Descriptor) string {
	if len(descs) == 0 {
		return "empty batch"
	}
	return descs[0].Call.String()
}
