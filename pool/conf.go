package pool

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/utkarsh5026/parjoin/internal/cpu"
	"github.com/utkarsh5026/parjoin/internal/scheduler"
	"golang.org/x/time/rate"
)

// SchedulingStrategyType selects how a batch's tasks are handed to workers.
type SchedulingStrategyType = scheduler.SchedulingStrategyType

const (
	// SchedulingShared feeds all workers from one FIFO queue (default).
	SchedulingShared = scheduler.SchedulingShared
	// SchedulingChannel gives every worker its own queue, filled round-robin.
	SchedulingChannel = scheduler.SchedulingChannel
)

// DefaultPollInterval is how often joins check progress unless overridden.
const DefaultPollInterval = time.Second

// Option is a functional option for configuring a Dispatcher.
type Option func(*config)

type config struct {
	workerCount     int
	taskBuffer      int
	rateLimiter     *rate.Limiter
	pinWorkers      bool
	strategy        SchedulingStrategyType
	logger          logrus.FieldLogger
	beforeTaskStart func(Descriptor)
	onTaskEnd       func(Descriptor, any, error)
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		workerCount: cpu.Count(),
		taskBuffer:  -1,
		strategy:    SchedulingShared,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.taskBuffer < 0 {
		cfg.taskBuffer = cfg.workerCount
	}
	if cfg.logger == nil {
		cfg.logger = newDefaultLogger()
	}
	return cfg
}

// processorConfig converts the dispatcher config into a scheduler config.
func (c *config) processorConfig() *scheduler.ProcessorConfig[*taskEnvelope, any] {
	pc := &scheduler.ProcessorConfig[*taskEnvelope, any]{
		WorkerCount:        c.workerCount,
		TaskBuffer:         c.taskBuffer,
		RateLimiter:        c.rateLimiter,
		PinWorkers:         c.pinWorkers,
		SchedulingStrategy: c.strategy,
		Logger:             c.logger,
	}
	if c.beforeTaskStart != nil {
		pc.BeforeTaskStart = func(e *taskEnvelope) { c.beforeTaskStart(e.desc) }
	}
	if c.onTaskEnd != nil {
		pc.OnTaskEnd = func(e *taskEnvelope, r any, err error) { c.onTaskEnd(e.desc, r, err) }
	}
	return pc
}

// WithWorkerCount sets the number of concurrent workers per batch.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkerCount(count int) Option {
	return func(cfg *config) {
		if count > 0 {
			cfg.workerCount = count
		}
	}
}

// WithTaskBuffer sets the buffer size of the task queues.
// If not specified, defaults to the number of workers. Zero makes the queues
// unbuffered; negative sizes are ignored.
func WithTaskBuffer(size int) Option {
	return func(cfg *config) {
		if size >= 0 {
			cfg.taskBuffer = size
		}
	}
}

// WithRateLimit caps how many tasks may start per second.
// burst specifies the maximum number of tasks that can start at once.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithCPUAffinity locks every worker to an OS thread and, on Linux, pins it
// to a core.
func WithCPUAffinity(enabled bool) Option {
	return func(cfg *config) {
		cfg.pinWorkers = enabled
	}
}

// WithSchedulingStrategy selects how tasks are distributed to workers.
func WithSchedulingStrategy(strategy SchedulingStrategyType) Option {
	return func(cfg *config) {
		cfg.strategy = strategy
	}
}

// WithLogger routes dispatcher and join logs to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithBeforeTaskStart registers a hook run in the worker before each task.
func WithBeforeTaskStart(fn func(Descriptor)) Option {
	return func(cfg *config) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook run in the worker after each task.
func WithOnTaskEnd(fn func(d Descriptor, result any, err error)) Option {
	return func(cfg *config) {
		cfg.onTaskEnd = fn
	}
}

// JoinOption configures Join and JoinUnordered.
type JoinOption func(*joinConfig)

type joinConfig struct {
	pollInterval time.Duration
	sink         ProgressSink
	description  string
	reclaim      bool
	reclaimer    func()
	drain        bool
	logger       logrus.FieldLogger
}

func newJoinConfig(logger logrus.FieldLogger, opts ...JoinOption) *joinConfig {
	cfg := &joinConfig{
		pollInterval: DefaultPollInterval,
		sink:         NopSink{},
		reclaim:      true,
		reclaimer:    Reclaim,
		logger:       logger,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = newDefaultLogger()
	}
	return cfg
}

// WithPollInterval sets how long a join waits between progress checks.
func WithPollInterval(d time.Duration) JoinOption {
	return func(cfg *joinConfig) {
		if d > 0 {
			cfg.pollInterval = d
		}
	}
}

// WithProgress sends progress updates to sink.
func WithProgress(sink ProgressSink) JoinOption {
	return func(cfg *joinConfig) {
		if sink != nil {
			cfg.sink = sink
		}
	}
}

// WithDescription sets the label passed to the progress sink.
func WithDescription(desc string) JoinOption {
	return func(cfg *joinConfig) {
		cfg.description = desc
	}
}

// WithReclaim toggles the memory reclamation pass after completion.
// Enabled by default.
func WithReclaim(enabled bool) JoinOption {
	return func(cfg *joinConfig) {
		cfg.reclaim = enabled
	}
}

// WithReclaimer replaces the reclamation pass run when reclaim is enabled.
func WithReclaimer(fn func()) JoinOption {
	return func(cfg *joinConfig) {
		if fn != nil {
			cfg.reclaimer = fn
		}
	}
}

// WithDrain makes JoinUnordered remove finished handles from the caller's
// set as they complete. The set must implement DrainableSet.
func WithDrain(enabled bool) JoinOption {
	return func(cfg *joinConfig) {
		cfg.drain = enabled
	}
}

// WithJoinLogger overrides the logger used for progress sink failures.
func WithJoinLogger(logger logrus.FieldLogger) JoinOption {
	return func(cfg *joinConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
