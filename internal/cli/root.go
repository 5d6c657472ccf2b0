// Package cli implements the parjoin command line.
package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "PARJOIN"

// NewRootCmd builds the parjoin command tree. Each call has its own viper
// instance so commands can be built and run repeatedly.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "parjoin",
		Short: "Run work in parallel and join the results",
		Long: `parjoin partitions a CPU-bound workload, runs it on a worker pool and joins
the results, either in submission order (run) or as tasks finish (spawn).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is ./parjoin.yaml)")
	flags.IntP("workers", "w", 0, "workers per batch (default GOMAXPROCS)")
	flags.String("strategy", "shared", "task distribution: shared or channel")
	flags.Duration("poll-interval", 0, "progress poll interval (default 1s)")
	flags.Bool("reclaim", true, "run a memory reclamation pass after completion")
	flags.Bool("progress", true, "show a progress bar")
	flags.Float64("rate-limit", 0, "maximum task starts per second (0 disables)")
	flags.Bool("pin", false, "pin workers to CPU cores")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")

	bindings := map[string]string{
		"config":         "config",
		"workers":        "workers",
		"strategy":       "strategy",
		"poll_interval":  "poll-interval",
		"reclaim":        "reclaim",
		"progress":       "progress",
		"rate_limit":     "rate-limit",
		"pin":            "pin",
		"logging.level":  "log-level",
		"logging.format": "log-format",
	}
	for key, flag := range bindings {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newRunCmd(v),
		newPartitionCmd(),
		newSpawnCmd(v),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func initConfig(v *viper.Viper) error {
	SetDefaults(v)

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("parjoin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/parjoin")
	}

	v.SetEnvPrefix(envPrefix)
	// PARJOIN_LOGGING_LEVEL for logging.level
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}
