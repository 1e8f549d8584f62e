package telemetry

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Level names a logging stream.
type Level int

const (
	// LevelOps carries actionable warnings, errors, and lifecycle events
	// (e.g. training started/finished).
	LevelOps Level = iota
	// LevelDiag carries day-to-day diagnostics useful for tuning: N_eff
	// history, diverged-beacon counts, per-step rejection rates.
	LevelDiag
	// LevelTrace carries per-scan, high-frequency detail not meant to run
	// in production.
	LevelTrace
)

// Writers holds the io.Writer backing each stream. A nil field disables
// that stream.
type Writers struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetWriters configures all three streams at once.
func SetWriters(w Writers) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger("[bleloc] ", w.Ops)
	diagLogger = newLogger("[bleloc] ", w.Diag)
	traceLogger = newLogger("[bleloc] ", w.Trace)
}

// SetWriter configures a single stream. Pass nil to disable it.
func SetWriter(level Level, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	switch level {
	case LevelOps:
		opsLogger = newLogger("[bleloc] ", w)
	case LevelDiag:
		diagLogger = newLogger("[bleloc] ", w)
	case LevelTrace:
		traceLogger = newLogger("[bleloc] ", w)
	default:
		panic(fmt.Sprintf("telemetry.SetWriter: unknown Level %d", level))
	}
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) {
	mu.RLock()
	l := opsLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	mu.RLock()
	l := diagLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	mu.RLock()
	l := traceLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
