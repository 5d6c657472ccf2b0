package pool

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// ProgressSink receives cumulative progress from a join.
// current never decreases and never exceeds total.
type ProgressSink interface {
	Update(current, total int, desc string) error
}

// NopSink discards progress.
type NopSink struct{}

func (NopSink) Update(int, int, string) error { return nil }

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(current, total int, desc string) error

func (f SinkFunc) Update(current, total int, desc string) error {
	return f(current, total, desc)
}

// BarSink renders progress as a terminal progress bar.
// The bar is created on the first update, once the total is known.
type BarSink struct {
	mu     sync.Mutex
	w      io.Writer
	opts   []progressbar.Option
	bar    *progressbar.ProgressBar
	total  int
	closed bool
}

// NewBarSink creates a bar sink writing to w (os.Stderr when nil).
// Extra options are appended to the defaults.
func NewBarSink(w io.Writer, opts ...progressbar.Option) *BarSink {
	if w == nil {
		w = os.Stderr
	}
	return &BarSink{w: w, opts: opts}
}

func (s *BarSink) Update(current, total int, desc string) error {
	if total <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bar == nil || s.total != total {
		s.bar = s.newBar(total, desc)
		s.total = total
		s.closed = false
	}
	if s.closed {
		return nil
	}

	if err := s.bar.Set(current); err != nil {
		return err
	}
	if current >= total {
		s.closed = true
		return s.bar.Finish()
	}
	return nil
}

func (s *BarSink) newBar(total int, desc string) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionThrottle(65 * time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(s.w) }),
	}
	return progressbar.NewOptions(total, append(opts, s.opts...)...)
}

// LogSink reports progress as structured log entries.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Update(current, total int, desc string) error {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"current": current,
		"total":   total,
		"task":    desc,
	}).Info("progress")
	return nil
}

// tracker keeps the cumulative count of a join and shields the join from
// sink failures.
type tracker struct {
	sink    ProgressSink
	logger  logrus.FieldLogger
	desc    string
	total   int
	current int
}

func newTracker(cfg *joinConfig, total int) *tracker {
	return &tracker{
		sink:   cfg.sink,
		logger: cfg.logger,
		desc:   cfg.description,
		total:  total,
	}
}

// add advances progress by n units, capped at total.
func (t *tracker) add(n int) {
	if n <= 0 || t.current >= t.total {
		return
	}
	t.current = min(t.total, t.current+n)
	t.emit()
}

// finish advances progress to total.
func (t *tracker) finish() {
	t.add(t.total - t.current)
}

func (t *tracker) emit() {
	defer func() {
		if r := recover(); r != nil {
			t.logger.WithField("panic", r).Warn("progress sink panicked")
		}
	}()

	if err := t.sink.Update(t.current, t.total, t.desc); err != nil {
		t.logger.WithError(err).WithFields(logrus.Fields{
			"current": t.current,
			"total":   t.total,
		}).Warn("progress sink update failed")
	}
}
