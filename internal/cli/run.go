package cli

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/utkarsh5026/parjoin/pool"
	"github.com/utkarsh5026/parjoin/store"
)

type runOptions struct {
	n      int
	chunks int
	save   string
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Count primes below n in parallel and join in order",
		Long: `Split [0, n) into chunks, count the primes of every chunk on a worker
pool and print the per-chunk results in submission order.

With --save the results are also written to a file whose extension selects
the format: .json, .yaml, .msgpack or .gob, optionally followed by .gz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Load(v)
			if err != nil {
				return err
			}
			return runPrimes(cmd, cfg, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.n, "n", "n", 1_000_000, "upper bound (exclusive)")
	cmd.Flags().IntVarP(&opts.chunks, "chunks", "k", 16, "number of chunks")
	cmd.Flags().StringVarP(&opts.save, "save", "o", "", "write results to this file")
	return cmd
}

func runPrimes(cmd *cobra.Command, cfg *Config, opts runOptions) error {
	if opts.n < 0 {
		return fmt.Errorf("n must not be negative, got %d", opts.n)
	}

	args, err := rangeArgs(opts.n, opts.chunks)
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr())
	d := pool.NewDispatcher(cfg.DispatcherOptions(logger)...)

	descs := make([]pool.Descriptor, len(args))
	for i, a := range args {
		descs[i] = pool.Descriptor{Call: pool.Func(countPrimes), Args: a}
	}

	start := time.Now()
	b, err := d.Submit(cmd.Context(), descs)
	if err != nil {
		return err
	}

	var sink pool.ProgressSink
	if cfg.Progress {
		sink = pool.NewBarSink(cmd.ErrOrStderr())
	}
	joinOpts := append(cfg.JoinOptions(sink), pool.WithDescription(fmt.Sprintf("primes below %d", opts.n)))

	results, err := pool.Join(cmd.Context(), b, joinOpts...)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats, err := pool.ResultsAs[RangeStats](results)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"batch":   b.ID(),
		"chunks":  len(stats),
		"elapsed": elapsed,
	}).Info("run finished")

	out := cmd.OutOrStdout()
	printSectionHeader(out, "PRIME COUNT",
		fmt.Sprintf("n=%d chunks=%d workers=%d strategy=%s elapsed=%s",
			opts.n, opts.chunks, d.WorkerCount(), cfg.Strategy, elapsed.Round(time.Millisecond)))
	if err := renderStats(out, stats); err != nil {
		return err
	}

	if opts.save != "" {
		if err := store.Save(stats, opts.save); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "saved %d results to %s\n", len(stats), opts.save)
	}
	return nil
}
