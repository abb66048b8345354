package logutil

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	logger  = log.NewWithOptions(os.Stderr, log.Options{Prefix: "squadpost", ReportTimestamp: true, Level: log.InfoLevel})
	verbose bool
	mu      sync.RWMutex
)

// SetVerbose adjusts the global logging level.
func SetVerbose(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = enable
	if enable {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}

// SetLevel applies a level name such as "debug" or "warn". Unknown names
// leave the level unchanged.
func SetLevel(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	lvl, err := log.ParseLevel(name)
	if err != nil {
		logger.Warnf("unknown log level %q", name)
		return
	}
	mu.Lock()
	defer mu.Unlock()
	verbose = lvl <= log.DebugLevel
	logger.SetLevel(lvl)
}

// SetOutput redirects log output. The interactive modal sends logs away from
// the terminal it draws on.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Verbose reports whether verbose logging is enabled.
func Verbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// Debugf logs a debug message when verbose logging is enabled.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}
