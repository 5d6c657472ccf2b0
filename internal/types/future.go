package types

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrFutureTimeout = errors.New("future: timed out waiting for result")
)

// Future is a handle to a result that becomes available exactly once.
// The producing side calls Complete; any number of goroutines may read it.
//
// Type parameters:
//   - R: The type of the result value
//   - K: The key identifying the task (index, id, ...)
type Future[R any, K comparable] struct {
	done chan struct{}
	once sync.Once
	res  Result[R, K]
}

// NewFuture creates an incomplete Future.
func NewFuture[R any, K comparable]() *Future[R, K] {
	return &Future[R, K]{
		done: make(chan struct{}),
	}
}

// Complete stores the result and wakes every waiter.
// Only the first call has an effect; it reports whether it won.
func (f *Future[R, K]) Complete(r Result[R, K]) bool {
	won := false
	f.once.Do(func() {
		f.res = r
		close(f.done)
		won = true
	})
	return won
}

// Get blocks until the result is available.
func (f *Future[R, K]) Get() (R, K, error) {
	<-f.done
	return f.res.Value, f.res.Key, f.res.Error
}

// GetWithContext blocks until the result is available or ctx is done.
// On context expiry the zero value, zero key and ctx.Err() are returned.
func (f *Future[R, K]) GetWithContext(ctx context.Context) (R, K, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Key, f.res.Error
	case <-ctx.Done():
		var zr R
		var zk K
		return zr, zk, ctx.Err()
	}
}

// GetWithTimeout is GetWithContext with a plain deadline.
func (f *Future[R, K]) GetWithTimeout(timeout time.Duration) (R, K, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.res.Value, f.res.Key, f.res.Error
	case <-timer.C:
		var zr R
		var zk K
		return zr, zk, ErrFutureTimeout
	}
}

// TryGet returns the result without blocking. ready is false while the task is in flight.
func (f *Future[R, K]) TryGet() (value R, key K, err error, ready bool) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Key, f.res.Error, true
	default:
		return value, key, nil, false
	}
}

// Done returns a channel closed once the result is available.
func (f *Future[R, K]) Done() <-chan struct{} {
	return f.done
}

// IsReady reports whether the result is available.
func (f *Future[R, K]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
