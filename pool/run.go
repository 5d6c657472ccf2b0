package pool

import (
	"context"
	"fmt"
)

// Run calls fn once per entry of argList in parallel and returns the results
// in argList order. It is Submit followed by Join; progress is labelled with
// the function name unless WithDescription says otherwise.
func (d *Dispatcher) Run(ctx context.Context, fn Function, argList []Args, opts ...JoinOption) ([]any, error) {
	descs := make([]Descriptor, len(argList))
	for i, args := range argList {
		descs[i] = Descriptor{Call: Func(fn), Args: args}
	}
	return d.run(ctx, descs, opts)
}

// RunMethod calls the method name of target once per entry of argList.
// Every call runs against its own copy of target.
//
// Example:
//
//	results, err := d.RunMethod(ctx, "add", counter, []pool.Args{
//	    {"n": 1},
//	    {"n": 2},
//	})
func (d *Dispatcher) RunMethod(ctx context.Context, name string, target Target, argList []Args, opts ...JoinOption) ([]any, error) {
	descs := make([]Descriptor, len(argList))
	for i, args := range argList {
		descs[i] = Descriptor{Call: Method(name, target), Args: args}
	}
	return d.run(ctx, descs, opts)
}

func (d *Dispatcher) run(ctx context.Context, descs []Descriptor, opts []JoinOption) ([]any, error) {
	b, err := d.Submit(ctx, descs)
	if err != nil {
		return nil, err
	}
	return Join(ctx, b, opts...)
}

// ResultsAs converts joined results to T. A nil result becomes T's zero
// value; any other value that is not a T fails with ErrInvalidArgument.
func ResultsAs[T any](results []any) ([]T, error) {
	out := make([]T, len(results))
	for i, r := range results {
		if r == nil {
			continue
		}
		v, ok := r.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("%w: result %d is %T, not %T", ErrInvalidArgument, i, r, zero)
		}
		out[i] = v
	}
	return out, nil
}
