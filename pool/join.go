package pool

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Join waits for every task of b and returns their results in submission
// order.
//
// Join first closes b to new tasks. It then polls: each round waits up to the
// poll interval for the batch to become ready and reports newly finished
// tasks to the progress sink. Once all tasks have finished it waits for the
// workers to exit, runs the reclaim pass (unless disabled) and returns
// b.Collect().
//
// If ctx ends first, Join returns ctx.Err(). The tasks keep running and the
// batch can be joined again. A batch that has already been joined, or that
// another Join is currently waiting on, yields ErrInvalidState.
func Join(ctx context.Context, b *Batch, opts ...JoinOption) ([]any, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil batch", ErrInvalidArgument)
	}
	if !b.joining.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: batch %s is already being joined", ErrInvalidState, b.id)
	}
	defer b.joining.Store(false)

	if st := b.State(); st == StateClosed {
		return nil, fmt.Errorf("%w: batch %s is %s", ErrInvalidState, b.id, st)
	}

	cfg := newJoinConfig(b.logger, opts...)
	if cfg.description == "" {
		cfg.description = b.desc
	}

	b.Close()

	total := b.Len()
	tr := newTracker(cfg, total)
	done := total - b.Remaining()
	tr.add(done)

	b.logger.WithFields(logrus.Fields{
		"total": total,
		"done":  done,
	}).Debug("joining batch")

	for {
		ready, err := b.waitCtx(ctx, cfg.pollInterval)
		if err != nil {
			return nil, err
		}

		if now := total - b.Remaining(); now > done {
			tr.add(now - done)
			done = now
		}
		if ready {
			break
		}
	}

	b.state.Store(int32(StateDraining))
	tr.finish()

	select {
	case <-b.workersDone:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if cfg.reclaim {
		cfg.reclaimer()
	}

	results, err := b.Collect()
	b.state.Store(int32(StateClosed))
	b.logger.WithField("failed", err != nil).Debug("batch joined")
	return results, err
}
