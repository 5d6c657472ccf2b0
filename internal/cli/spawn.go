package cli

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/utkarsh5026/parjoin/pool"
)

func newSpawnCmd(v *viper.Viper) *cobra.Command {
	var n, tasks int

	cmd := &cobra.Command{
		Use:   "spawn",
		Short: "Count primes with independent tasks joined as they finish",
		Long: `Start one independent task per chunk of [0, n) and join them in completion
order, draining each finished task from the pending set. Results are listed
in the order the tasks finished.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Load(v)
			if err != nil {
				return err
			}
			return spawnPrimes(cmd, cfg, n, tasks)
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 200_000, "upper bound (exclusive)")
	cmd.Flags().IntVarP(&tasks, "tasks", "t", 8, "number of tasks")
	return cmd
}

func spawnPrimes(cmd *cobra.Command, cfg *Config, n, tasks int) error {
	if n < 0 {
		return fmt.Errorf("n must not be negative, got %d", n)
	}
	args, err := rangeArgs(n, tasks)
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		finished []RangeStats
	)
	logger := cfg.NewLogger(cmd.ErrOrStderr())
	opts := append(cfg.DispatcherOptions(logger), pool.WithOnTaskEnd(func(_ pool.Descriptor, r any, err error) {
		if s, ok := r.(RangeStats); ok && err == nil {
			mu.Lock()
			finished = append(finished, s)
			mu.Unlock()
		}
	}))
	d := pool.NewDispatcher(opts...)

	descs := make([]pool.Descriptor, len(args))
	for i, a := range args {
		lo, hi := a["lo"].(int), a["hi"].(int)
		descs[i] = pool.Descriptor{
			Call: pool.Method("count", &sieve{Offset: lo}),
			Args: pool.Args{"width": hi - lo},
		}
	}

	pending := d.SpawnAll(cmd.Context(), descs)
	handles := pending.Snapshot()

	var sink pool.ProgressSink
	if cfg.Progress {
		sink = pool.NewBarSink(cmd.ErrOrStderr())
	}
	joinOpts := append(cfg.JoinOptions(sink),
		pool.WithDrain(true),
		pool.WithDescription(fmt.Sprintf("%d tasks", len(handles))),
		pool.WithJoinLogger(logger),
	)
	if err := pool.JoinUnordered[*pool.Task](cmd.Context(), pending, joinOpts...); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, h := range handles {
		if _, err := h.Result(); err != nil {
			failed++
			printFailure(cmd.ErrOrStderr(), err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	printSectionHeader(out, "COMPLETION ORDER",
		fmt.Sprintf("n=%d tasks=%d pending=%d failed=%d", n, len(handles), pending.Len(), failed))
	if err := renderStats(out, finished); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(handles))
	}
	return nil
}
