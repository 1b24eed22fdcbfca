// Package diag implements the kernel's diagnostics surface (spec §4.17):
// structured logging for HM events and scheduler tracing, and an assertion
// routine that logs invariant violations (it does not halt the board).
//
// On real hardware this would be a minimal formatted-print routine over
// board.Putc; in this host-process simulation, logiface (with a zerolog
// backend) is the structured sink, and board.Putc remains the interface a
// real embedded backend would implement.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger is the logging facade used by every kernel subsystem. It is kept
// as the interface-erased logiface.Event form so packages never need to
// import the zerolog-specific event type.
type Logger = *logiface.Logger[logiface.Event]

// New constructs a Logger writing structured records to w at the given
// minimum level.
func New(w io.Writer, level logiface.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	return izerolog.L.New(
		izerolog.L.WithZerolog(zerolog.New(w).With().Timestamp().Logger()),
		izerolog.L.WithLevel(level),
	).Logger()
}

// NewDiscard constructs a Logger that drops all records; used by tests and
// any host context that does not care about diagnostics output.
func NewDiscard() Logger {
	return New(io.Discard, logiface.LevelError)
}

// Assert logs a critical-level record describing the violated invariant
// when cond is false. It returns nothing, and it neither calls board.Halt
// nor stops the process.
func Assert(log Logger, cond bool, format string, args ...any) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Crit().Str("assert", msg).Log("kernel assertion failed")
}
