// Package obslog wraps zerolog.Logger with the named call sites the
// teacher's pkg/utils.Logger offered (Algorithm, Decision, Backtrack,
// Frontier, Implication), so the structural-backtrace code reads the same
// way it always did while every message actually flows through zerolog's
// leveled, structured logging instead of hand-rolled string building.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin named-method facade over a zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New builds a console-rendered logger at the given level, the default the
// teacher's cmd/main.go wired up before a --log file path was given.
func New(level zerolog.Level) Logger {
	return Logger{zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		Level(level).
		With().Timestamp().Logger()}
}

// NewWriter builds a plain JSON logger writing to w, used for --log FILE.
func NewWriter(level zerolog.Level, w io.Writer) Logger {
	return Logger{zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything, for tests and library
// callers that don't want fanatpg's own logging.
func Nop() Logger { return Logger{zerolog.Nop()} }

// With returns a derived logger, e.g. for per-fault or per-depth context:
// l.With("fault", flt.String()).
func (l Logger) With(key string, value string) Logger {
	return Logger{l.Logger.With().Str(key, value).Logger()}
}

// Depth returns a derived logger tagging the current backtrace recursion
// depth, the zerolog counterpart of the teacher's Logger.Indent/Outdent
// pair (a fresh sub-logger per depth rather than mutable indent state).
func (l Logger) Depth(n int) Logger {
	return Logger{l.Logger.With().Int("depth", n).Logger()}
}

// Algorithm logs a high-level FAN/backtrace algorithm step.
func (l Logger) Algorithm(msg string) { l.Debug().Str("phase", "algorithm").Msg(msg) }

// Decision logs a branch decision.
func (l Logger) Decision(msg string) { l.Debug().Str("phase", "decision").Msg(msg) }

// Backtrack logs a backtrack event.
func (l Logger) Backtrack(msg string) { l.Debug().Str("phase", "backtrack").Msg(msg) }

// Implication logs an implication-engine step, at trace level since it's
// the highest-volume call site in the teacher's own logger too.
func (l Logger) Implication(msg string) { l.Trace().Str("phase", "implication").Msg(msg) }

// Frontier logs a D-frontier/J-frontier update.
func (l Logger) Frontier(msg string) { l.Trace().Str("phase", "frontier").Msg(msg) }

// CNF logs a CNF-encoding step (GateEnc/PropCone construction).
func (l Logger) CNF(msg string) { l.Debug().Str("phase", "cnf").Msg(msg) }

// Fsim logs a fault-simulation round.
func (l Logger) Fsim(msg string) { l.Debug().Str("phase", "fsim").Msg(msg) }
