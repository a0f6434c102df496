package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel is the severity of a [LogEntry], mirroring the level scheme the
// teacher's eventloop package uses for its own structured logger.
type LogLevel int32

const (
	// LevelDebug is for detailed diagnostic output: every tick, every
	// acquire/release of the exclusive section.
	LevelDebug LogLevel = iota
	// LevelInfo is for routine lifecycle events: harness start/stop, a core
	// entering shutdown.
	LevelInfo
	// LevelWarn is for recoverable anomalies: a bounded wait timed out and
	// was retried, or a warning was suppressed by the rate limiter.
	LevelWarn
	// LevelError is for failures a human should see: an exclusive-section
	// timeout that forced a [kernel.Kernel.ResetExclusive], for instance.
	LevelError
)

// String returns a human-readable name for the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
}

// LogEntry is one structured log record emitted by the harness.
type LogEntry struct {
	Level     LogLevel
	Category  string // "tick", "critical", "exclusive", "shutdown", "monitor"
	Core      string // Core.String(), or "" if not core-specific
	Message   string
	Err       error
	Timestamp time.Time
}

// Logger is the structured logging interface the harness logs through.
// Deliberately narrow, like the teacher's own eventloop.Logger, so swapping
// in an adapter for an external logging framework requires implementing
// only two methods.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// noOpLogger discards everything; used when the harness is constructed
// without an explicit Logger.
type noOpLogger struct{}

func (noOpLogger) Log(LogEntry)            {}
func (noOpLogger) IsEnabled(LogLevel) bool { return false }

// NewNoOpLogger returns a [Logger] that discards all entries.
func NewNoOpLogger() Logger { return noOpLogger{} }

// DefaultLogger is a minimal, dependency-free [Logger] implementation
// writing newline-delimited, human-readable lines to an [io.Writer]
// (os.Stderr when built by [NewDefaultLogger]). Grounded
// directly on the teacher's eventloop.DefaultLogger (see
// eventloop/logging.go): same level-gating/mutex/atomic shape, trimmed down
// to the fields this package's [LogEntry] actually carries.
type DefaultLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	Out   io.Writer
}

// NewDefaultLogger creates a Logger writing to os.Stderr, gated at level.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	l := &DefaultLogger{Out: os.Stderr}
	l.level.Store(int32(level))
	return l
}

// SetLevel dynamically changes the minimum logged level.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// IsEnabled reports whether level would currently be logged.
func (l *DefaultLogger) IsEnabled(level LogLevel) bool {
	return level >= LogLevel(l.level.Load())
}

// Log writes entry, if its level is enabled. Timestamps default to
// time.Now if unset.
func (l *DefaultLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.Out, "%s %-5s [%-10s]", entry.Timestamp.Format("15:04:05.000"), entry.Level, entry.Category)
	if entry.Core != "" {
		fmt.Fprintf(l.Out, " core=%s", entry.Core)
	}
	fmt.Fprintf(l.Out, " %s", entry.Message)
	if entry.Err != nil {
		fmt.Fprintf(l.Out, ": %v", entry.Err)
	}
	fmt.Fprintln(l.Out)
}
