package pool

import (
	"os"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Reclaim is the default reclamation pass: a forced collection that also
// returns freed memory to the OS. It is a hint for bounding peak memory
// between completions, never needed for correctness.
func Reclaim() {
	debug.FreeOSMemory()
}

func newDefaultLogger() *logrus.Logger {
	return &logrus.Logger{
		Out:       os.Stderr,
		Formatter: &logrus.TextFormatter{},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.WarnLevel,
	}
}
