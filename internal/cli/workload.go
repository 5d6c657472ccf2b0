package cli

import (
	"context"
	"fmt"

	"github.com/utkarsh5026/parjoin/pool"
)

// RangeStats summarises the primes found in [Lo, Hi).
type RangeStats struct {
	Lo      int `json:"lo" yaml:"lo" msgpack:"lo"`
	Hi      int `json:"hi" yaml:"hi" msgpack:"hi"`
	Count   int `json:"count" yaml:"count" msgpack:"count"`
	Largest int `json:"largest" yaml:"largest" msgpack:"largest"`
}

func (r RangeStats) String() string {
	return fmt.Sprintf("[%d, %d)", r.Lo, r.Hi)
}

// countPrimes is the CPU-bound task submitted by the run command.
var countPrimes = pool.NewFunction("countPrimes", func(ctx context.Context, a pool.Args) (any, error) {
	lo, hi := a["lo"].(int), a["hi"].(int)
	stats := RangeStats{Lo: lo, Hi: hi}
	for n := lo; n < hi; n++ {
		if n&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if isPrime(n) {
			stats.Count++
			stats.Largest = n
		}
	}
	return stats, nil
}, "lo", "hi")

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// rangeArgs splits [0, n) into k contiguous ranges of near-equal size.
func rangeArgs(n, k int) ([]pool.Args, error) {
	sizes, err := pool.Sizes(n, k)
	if err != nil {
		return nil, err
	}

	args := make([]pool.Args, 0, k)
	lo := 0
	for _, size := range sizes {
		args = append(args, pool.Args{"lo": lo, "hi": lo + size})
		lo += size
	}
	return args, nil
}

// sieve is a method target: every task gets its own copy, so Checked counts
// only that task's work.
type sieve struct {
	Offset  int
	Checked int
}

func (s *sieve) Methods() pool.MethodSet {
	return pool.MethodSet{
		"count": pool.NewFunction("count", func(ctx context.Context, a pool.Args) (any, error) {
			width := a["width"].(int)
			stats := RangeStats{Lo: s.Offset, Hi: s.Offset + width}
			for n := stats.Lo; n < stats.Hi; n++ {
				s.Checked++
				if isPrime(n) {
					stats.Count++
					stats.Largest = n
				}
			}
			return stats, nil
		}, "width"),
	}
}
