package scheduler

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type SchedulingStrategyType int

const (
	// SchedulingShared feeds every worker from one FIFO queue.
	SchedulingShared SchedulingStrategyType = iota
	// SchedulingChannel gives each worker its own queue, filled round-robin.
	SchedulingChannel
)

func (s SchedulingStrategyType) String() string {
	switch s {
	case SchedulingShared:
		return "shared"
	case SchedulingChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// ProcessorConfig holds the configuration of one worker pool.
type ProcessorConfig[T, R any] struct {
	// Number of worker goroutines in the pool.
	WorkerCount int

	// Capacity of each task queue.
	TaskBuffer int

	// Optional token bucket limiter applied before every task (may be nil).
	RateLimiter *rate.Limiter

	// Lock each worker to an OS thread and pin it to a core.
	PinWorkers bool

	// How tasks are distributed to workers.
	SchedulingStrategy SchedulingStrategyType

	// Hook called before a task starts.
	BeforeTaskStart func(T)

	// Hook called after a task ends with its input, result and error.
	OnTaskEnd func(T, R, error)

	// Destination of worker debug logs. Nil means logrus' standard logger.
	Logger logrus.FieldLogger
}

func (c *ProcessorConfig[T, R]) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
