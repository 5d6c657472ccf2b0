package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/utkarsh5026/parjoin/internal/types"
	"golang.org/x/time/rate"
)

func allStrategyTypes() []SchedulingStrategyType {
	return []SchedulingStrategyType{SchedulingShared, SchedulingChannel}
}

// collector gathers results delivered by workers.
type collector struct {
	mu      sync.Mutex
	results map[int64]*types.Result[int, int64]
}

func newCollector() *collector {
	return &collector{results: make(map[int64]*types.Result[int, int64])}
}

func (c *collector) handle(_ *types.SubmittedTask[int, int], r *types.Result[int, int64]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[r.Key] = r
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// runWorkers starts n workers and returns a func waiting for all of them.
func runWorkers(
	ctx context.Context,
	s SchedulingStrategy[int, int],
	n int,
	fn types.ProcessFunc[int, int],
	h types.ResultHandler[int, int],
) func() {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func(id int64) {
			defer wg.Done()
			_ = s.Worker(ctx, id, fn, h)
		}(int64(i))
	}
	return wg.Wait
}

func makeTasks(n int) []*types.SubmittedTask[int, int] {
	tasks := make([]*types.SubmittedTask[int, int], n)
	for i := range n {
		tasks[i] = types.NewSubmittedTask[int, int](i, int64(i), nil)
	}
	return tasks
}

func TestCreateSchedulingStrategy(t *testing.T) {
	tests := []struct {
		name    string
		conf    ProcessorConfig[int, int]
		wantErr bool
	}{
		{name: "shared", conf: ProcessorConfig[int, int]{WorkerCount: 2, SchedulingStrategy: SchedulingShared}},
		{name: "channel", conf: ProcessorConfig[int, int]{WorkerCount: 2, SchedulingStrategy: SchedulingChannel}},
		{name: "zero workers", conf: ProcessorConfig[int, int]{WorkerCount: 0}, wantErr: true},
		{name: "negative buffer", conf: ProcessorConfig[int, int]{WorkerCount: 1, TaskBuffer: -1}, wantErr: true},
		{name: "unknown strategy", conf: ProcessorConfig[int, int]{WorkerCount: 1, SchedulingStrategy: 99}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := CreateSchedulingStrategy(&tt.conf)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s == nil {
				t.Fatal("expected a strategy")
			}
			s.Shutdown()
		})
	}
}

func TestNewChannelStrategy(t *testing.T) {
	conf := &ProcessorConfig[int, int]{WorkerCount: 3, TaskBuffer: 7}
	s := newChannelStrategy(conf)
	defer s.Shutdown()

	if len(s.taskChans) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(s.taskChans))
	}
	for i, ch := range s.taskChans {
		if cap(ch) != 7 {
			t.Errorf("channel %d has capacity %d, want 7", i, cap(ch))
		}
	}
}

func TestChannelStrategy_SubmitRoundRobin(t *testing.T) {
	conf := &ProcessorConfig[int, int]{WorkerCount: 4, TaskBuffer: 100}
	s := newChannelStrategy(conf)

	for _, task := range makeTasks(100) {
		if err := s.Submit(task); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	for i, ch := range s.taskChans {
		if len(ch) != 25 {
			t.Errorf("channel %d holds %d tasks, want 25", i, len(ch))
		}
	}
	s.Shutdown()
}

func TestStrategies_ExecuteEveryTask(t *testing.T) {
	for _, st := range allStrategyTypes() {
		t.Run(st.String(), func(t *testing.T) {
			conf := &ProcessorConfig[int, int]{WorkerCount: 4, TaskBuffer: 8, SchedulingStrategy: st}
			s, err := CreateSchedulingStrategy(conf)
			if err != nil {
				t.Fatal(err)
			}

			c := newCollector()
			wait := runWorkers(context.Background(), s, conf.WorkerCount, func(_ context.Context, n int) (int, error) {
				return n * 2, nil
			}, c.handle)

			count, err := s.SubmitBatch(makeTasks(200))
			if err != nil || count != 200 {
				t.Fatalf("SubmitBatch = %d, %v", count, err)
			}
			s.Shutdown()
			wait()

			if c.len() != 200 {
				t.Fatalf("expected 200 results, got %d", c.len())
			}
			for key, r := range c.results {
				if r.Error != nil {
					t.Errorf("task %d: unexpected error %v", key, r.Error)
				}
				if r.Value != int(key)*2 {
					t.Errorf("task %d: expected %d, got %d", key, key*2, r.Value)
				}
			}
		})
	}
}

func TestStrategies_SubmitAfterShutdown(t *testing.T) {
	for _, st := range allStrategyTypes() {
		t.Run(st.String(), func(t *testing.T) {
			s, err := CreateSchedulingStrategy(&ProcessorConfig[int, int]{WorkerCount: 1, TaskBuffer: 1, SchedulingStrategy: st})
			if err != nil {
				t.Fatal(err)
			}
			s.Shutdown()
			s.Shutdown() // idempotent

			if err := s.Submit(makeTasks(1)[0]); !errors.Is(err, ErrSchedulerClosed) {
				t.Errorf("Submit: expected ErrSchedulerClosed, got %v", err)
			}
			if _, err := s.SubmitBatch(makeTasks(2)); !errors.Is(err, ErrSchedulerClosed) {
				t.Errorf("SubmitBatch: expected ErrSchedulerClosed, got %v", err)
			}
		})
	}
}

func TestStrategies_ShutdownKeepsPendingBatch(t *testing.T) {
	for _, st := range allStrategyTypes() {
		t.Run(st.String(), func(t *testing.T) {
			conf := &ProcessorConfig[int, int]{WorkerCount: 2, TaskBuffer: 0, SchedulingStrategy: st}
			s, _ := CreateSchedulingStrategy(conf)

			// Unbuffered queues: the feed is still running when Shutdown is called.
			if _, err := s.SubmitBatch(makeTasks(50)); err != nil {
				t.Fatal(err)
			}
			s.Shutdown()

			c := newCollector()
			wait := runWorkers(context.Background(), s, conf.WorkerCount, func(_ context.Context, n int) (int, error) {
				return n, nil
			}, c.handle)
			wait()

			if c.len() != 50 {
				t.Fatalf("expected all 50 accepted tasks to run, got %d", c.len())
			}
		})
	}
}

func TestStrategies_PanicIsRecovered(t *testing.T) {
	for _, st := range allStrategyTypes() {
		t.Run(st.String(), func(t *testing.T) {
			conf := &ProcessorConfig[int, int]{WorkerCount: 2, TaskBuffer: 4, SchedulingStrategy: st}
			s, _ := CreateSchedulingStrategy(conf)

			c := newCollector()
			wait := runWorkers(context.Background(), s, conf.WorkerCount, func(_ context.Context, n int) (int, error) {
				if n == 3 {
					panic("boom")
				}
				return n, nil
			}, c.handle)

			_, _ = s.SubmitBatch(makeTasks(10))
			s.Shutdown()
			wait()

			if c.len() != 10 {
				t.Fatalf("expected 10 results, got %d", c.len())
			}
			if err := c.results[3].Error; err == nil || !strings.Contains(err.Error(), "worker panic: boom") {
				t.Errorf("expected recovered panic, got %v", err)
			}
			if c.results[4].Error != nil {
				t.Errorf("sibling task failed: %v", c.results[4].Error)
			}
		})
	}
}

func TestStrategies_CancelledContextDoesNotDropTasks(t *testing.T) {
	for _, st := range allStrategyTypes() {
		t.Run(st.String(), func(t *testing.T) {
			conf := &ProcessorConfig[int, int]{WorkerCount: 2, TaskBuffer: 4, SchedulingStrategy: st}
			s, _ := CreateSchedulingStrategy(conf)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			c := newCollector()
			wait := runWorkers(ctx, s, conf.WorkerCount, func(ctx context.Context, n int) (int, error) {
				return n, ctx.Err()
			}, c.handle)

			_, _ = s.SubmitBatch(makeTasks(20))
			s.Shutdown()
			wait()

			if c.len() != 20 {
				t.Fatalf("expected 20 results, got %d", c.len())
			}
			for key, r := range c.results {
				if !errors.Is(r.Error, context.Canceled) {
					t.Errorf("task %d: expected context.Canceled, got %v", key, r.Error)
				}
			}
		})
	}
}

func TestStrategies_PinnedWorkers(t *testing.T) {
	conf := &ProcessorConfig[int, int]{WorkerCount: 2, TaskBuffer: 4, PinWorkers: true}
	s, _ := CreateSchedulingStrategy(conf)

	c := newCollector()
	wait := runWorkers(context.Background(), s, conf.WorkerCount, func(_ context.Context, n int) (int, error) {
		return n, nil
	}, c.handle)

	_, _ = s.SubmitBatch(makeTasks(16))
	s.Shutdown()
	wait()

	if c.len() != 16 {
		t.Fatalf("expected 16 results, got %d", c.len())
	}
}

func TestExecute_Hooks(t *testing.T) {
	var started, ended atomic.Int32
	conf := &ProcessorConfig[int, int]{
		WorkerCount:     1,
		BeforeTaskStart: func(int) { started.Add(1) },
		OnTaskEnd: func(task, result int, err error) {
			if result != task+1 || err != nil {
				t.Errorf("OnTaskEnd got (%d, %d, %v)", task, result, err)
			}
			ended.Add(1)
		},
	}

	got, err := Execute(context.Background(), conf, 41, func(_ context.Context, n int) (int, error) {
		return n + 1, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("Execute = %d, %v", got, err)
	}
	if started.Load() != 1 || ended.Load() != 1 {
		t.Errorf("hooks called %d/%d times, want 1/1", started.Load(), ended.Load())
	}
}

func TestExecute_RateLimiter(t *testing.T) {
	t.Run("throttles task starts", func(t *testing.T) {
		conf := &ProcessorConfig[int, int]{
			WorkerCount: 1,
			RateLimiter: rate.NewLimiter(rate.Limit(20), 1),
		}
		fn := func(_ context.Context, n int) (int, error) { return n, nil }

		start := time.Now()
		for i := range 4 {
			if _, err := Execute(context.Background(), conf, i, fn); err != nil {
				t.Fatal(err)
			}
		}
		// burst 1 at 20/s: three waits of ~50ms each
		if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
			t.Errorf("expected throttling, finished in %v", elapsed)
		}
	})

	t.Run("cancelled context fails the task", func(t *testing.T) {
		conf := &ProcessorConfig[int, int]{
			WorkerCount: 1,
			RateLimiter: rate.NewLimiter(rate.Limit(1), 1),
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Execute(ctx, conf, 1, func(_ context.Context, n int) (int, error) { return n, nil })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
