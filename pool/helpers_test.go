package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// strategyConfig defines a test configuration for a scheduling strategy
type strategyConfig struct {
	name string
	opts []Option
}

// getAllStrategies returns all scheduling strategies to test
func getAllStrategies(workerCount int) []strategyConfig {
	return []strategyConfig{
		{
			name: "Shared",
			opts: []Option{
				WithWorkerCount(workerCount),
				WithSchedulingStrategy(SchedulingShared),
			},
		},
		{
			name: "Channel",
			opts: []Option{
				WithWorkerCount(workerCount),
				WithSchedulingStrategy(SchedulingChannel),
			},
		},
	}
}

// runStrategyTest runs a test function against all strategies
func runStrategyTest(t *testing.T, workerCount int, testFn func(t *testing.T, s strategyConfig)) {
	t.Helper()
	for _, s := range getAllStrategies(workerCount) {
		t.Run(s.name, func(t *testing.T) {
			testFn(t, s)
		})
	}
}

var errBoom = errors.New("boom")

var increment = NewFunction("increment", func(ctx context.Context, a Args) (any, error) {
	return a["x"].(int) + 1, nil
}, "x")

var failing = NewFunction("failing", func(ctx context.Context, a Args) (any, error) {
	return nil, errBoom
}, "x")

// gated returns a function that blocks until release is closed.
func gated(release <-chan struct{}) Function {
	return NewFunction("gated", func(ctx context.Context, a Args) (any, error) {
		<-release
		return a["x"], nil
	}, "x")
}

func incrementArgs(xs ...int) []Args {
	args := make([]Args, len(xs))
	for i, x := range xs {
		args[i] = Args{"x": x}
	}
	return args
}

func descriptors(fn Function, args []Args) []Descriptor {
	descs := make([]Descriptor, len(args))
	for i, a := range args {
		descs[i] = Descriptor{Call: Func(fn), Args: a}
	}
	return descs
}

// accumulator is a method target that mutates itself on every call.
type accumulator struct {
	Total   int
	History []int
}

func (a *accumulator) Methods() MethodSet {
	return MethodSet{
		"add": NewFunction("add", func(ctx context.Context, args Args) (any, error) {
			n := args["n"].(int)
			a.Total += n
			a.History = append(a.History, n)
			return a.Total, nil
		}, "n"),
		"history": NewFunction("history", func(ctx context.Context, args Args) (any, error) {
			return len(a.History), nil
		}),
	}
}

// sealed keeps its state unexported and copies itself through Clone.
type sealed struct {
	base   int
	clones *int
}

func (s *sealed) Clone() Target {
	*s.clones++
	return &sealed{base: s.base, clones: s.clones}
}

func (s *sealed) Methods() MethodSet {
	return MethodSet{
		"scale": NewFunction("scale", func(ctx context.Context, args Args) (any, error) {
			return s.base * args["by"].(int), nil
		}, "by"),
	}
}

// recordingSink stores every update it receives.
type recordingSink struct {
	mu      sync.Mutex
	updates []int
	totals  []int
	descs   []string
}

func (s *recordingSink) Update(current, total int, desc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, current)
	s.totals = append(s.totals, total)
	s.descs = append(s.descs, desc)
	return nil
}

func (s *recordingSink) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.updates...)
}

func checkMonotonic(t *testing.T, updates []int, total int) {
	t.Helper()
	prev := 0
	for i, u := range updates {
		if u < prev {
			t.Errorf("update %d decreased: %d after %d", i, u, prev)
		}
		if u > total {
			t.Errorf("update %d exceeds total: %d > %d", i, u, total)
		}
		prev = u
	}
}

// noReclaim counts reclaim passes instead of collecting.
func noReclaim(count *int) JoinOption {
	return WithReclaimer(func() { *count++ })
}

const testPoll = 5 * time.Millisecond
