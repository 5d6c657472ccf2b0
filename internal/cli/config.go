package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/utkarsh5026/parjoin/pool"
)

// Config is the resolved CLI configuration: defaults, then the config file,
// then PARJOIN_* environment variables, then flags.
type Config struct {
	Workers      int           `mapstructure:"workers"`
	Strategy     string        `mapstructure:"strategy"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Reclaim      bool          `mapstructure:"reclaim"`
	Progress     bool          `mapstructure:"progress"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	Pin          bool          `mapstructure:"pin"`
	Logging      LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls the logrus logger used by the dispatcher.
type LoggingConfig struct {
	// Level is a logrus level name: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is "text" or "json".
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0)
	v.SetDefault("strategy", "shared")
	v.SetDefault("poll_interval", pool.DefaultPollInterval)
	v.SetDefault("reclaim", true)
	v.SetDefault("progress", true)
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("pin", false)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := parseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q: expected text or json", c.Logging.Format)
	}
	return nil
}

func parseStrategy(name string) (pool.SchedulingStrategyType, error) {
	switch strings.ToLower(name) {
	case "shared", "":
		return pool.SchedulingShared, nil
	case "channel":
		return pool.SchedulingChannel, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q: expected shared or channel", name)
	}
}

// NewLogger builds the logrus logger described by the config.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)

	if c.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// DispatcherOptions translates the config into dispatcher options.
func (c *Config) DispatcherOptions(logger logrus.FieldLogger) []pool.Option {
	strategy, _ := parseStrategy(c.Strategy)
	opts := []pool.Option{
		pool.WithSchedulingStrategy(strategy),
		pool.WithLogger(logger),
		pool.WithCPUAffinity(c.Pin),
	}
	if c.Workers > 0 {
		opts = append(opts, pool.WithWorkerCount(c.Workers))
	}
	if c.RateLimit > 0 {
		opts = append(opts, pool.WithRateLimit(c.RateLimit, max(1, int(c.RateLimit))))
	}
	return opts
}

// JoinOptions translates the config into join options. sink may be nil.
func (c *Config) JoinOptions(sink pool.ProgressSink) []pool.JoinOption {
	opts := []pool.JoinOption{
		pool.WithPollInterval(c.PollInterval),
		pool.WithReclaim(c.Reclaim),
	}
	if sink != nil {
		opts = append(opts, pool.WithProgress(sink))
	}
	return opts
}
