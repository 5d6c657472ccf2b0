// Package pool runs many independent calls in parallel and joins their
// results, either in submission order or as they finish.
//
// A unit of work is a Descriptor: a Callable plus named arguments. The
// callable is either a direct Function or a method name bound to a Target.
// Methods are looked up when the task runs, against a private copy of the
// target, so a task never sees the mutations of another.
//
// # Basic Usage
//
//	square := pool.NewFunction("square", func(ctx context.Context, a pool.Args) (any, error) {
//	    n := a["n"].(int)
//	    return n * n, nil
//	}, "n")
//
//	d := pool.NewDispatcher(pool.WithWorkerCount(4))
//	results, err := d.Run(ctx, square, []pool.Args{{"n": 1}, {"n": 2}, {"n": 3}})
//	// results: []any{1, 4, 9}
//
// # Ordered Join
//
// Submit returns a Batch at once. Join closes it to new tasks, polls it for
// progress and returns the results in submission order:
//
//	b, err := d.Submit(ctx, descs)
//	if err != nil {
//	    return err
//	}
//	results, err := pool.Join(ctx, b,
//	    pool.WithPollInterval(500*time.Millisecond),
//	    pool.WithProgress(pool.NewBarSink(os.Stderr)),
//	)
//
// A failing task does not stop the others. Join returns the error of the
// lowest failing index as a *WorkerError; errors.Is(err, pool.ErrWorker)
// holds and the individual handles stay queryable through b.Handles().
//
// # Unordered Join
//
// Independently started tasks can be joined as they finish. With drain
// enabled the caller's set shrinks as handles complete:
//
//	set := d.SpawnAll(ctx, descs)
//	err := pool.JoinUnordered[*pool.Task](ctx, set, pool.WithDrain(true))
//
// # Partitioning
//
// Partition, PartitionSorted and SplitSlice split work into exactly k chunks
// whose sizes differ by at most one, the larger chunks first.
//
// # Configuration Options
//
//   - WithWorkerCount(n): Set number of workers per batch (default: GOMAXPROCS)
//   - WithTaskBuffer(n): Set task queue capacity (default: worker count)
//   - WithRateLimit(perSec, burst): Throttle task starts
//   - WithSchedulingStrategy(s): Shared queue or per-worker channels
//   - WithCPUAffinity(true): Pin workers to cores
//   - WithLogger(l): Route logs to a logrus logger
//
// Join options:
//
//   - WithPollInterval(d): Progress check interval (default: 1s)
//   - WithProgress(sink): Receive cumulative progress
//   - WithReclaim(false): Skip the memory reclamation pass
//   - WithDrain(true): Remove finished handles from the set
//
// # Thread Safety
//
// Dispatcher, Batch, Task and Set are safe for concurrent use. A batch can
// be joined by one Join at a time.
package pool
