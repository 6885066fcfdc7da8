// Package monitoring provides the log sinks shared by the bridge.
//
// Logging is split into three streams, following the convention used across
// the codebase:
//
//   - ops:   actionable warnings, errors and rejected packets
//   - diag:  lifecycle events and periodic summaries
//   - trace: high-frequency per-packet detail
//
// A Sink is injected into each component at construction time; nothing in
// this package holds process-wide state.
package monitoring

import (
	"io"
	"log"
)

// Sink is the logging capability handed to components. It is satisfied by
// *Streams and *ZerologSink, and matches translate.Diagnostics.
type Sink interface {
	Opsf(format string, args ...interface{})
	Diagf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
}

// LogWriters holds the io.Writers for each logging stream. A nil writer
// disables that stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// WritersForLevel routes w to every stream enabled at level.
func WritersForLevel(level Level, w io.Writer) LogWriters {
	var lw LogWriters
	if level >= LevelError {
		lw.Ops = w
	}
	if level >= LevelInfo {
		lw.Diag = w
	}
	if level >= LevelDebug {
		lw.Trace = w
	}
	return lw
}

// Streams is a text Sink backed by one *log.Logger per stream. log.Logger
// serialises writes, so a Streams value is safe for concurrent use.
type Streams struct {
	ops   *log.Logger
	diag  *log.Logger
	trace *log.Logger
}

// NewStreams builds a Streams whose lines carry prefix, e.g. "[bridge] ".
func NewStreams(prefix string, w LogWriters) *Streams {
	return &Streams{
		ops:   newLogger(prefix, w.Ops),
		diag:  newLogger(prefix, w.Diag),
		trace: newLogger(prefix, w.Trace),
	}
}

// Discard returns a Streams with every stream disabled.
func Discard() *Streams { return &Streams{} }

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream.
func (s *Streams) Opsf(format string, args ...interface{}) {
	if s != nil && s.ops != nil {
		s.ops.Printf(format, args...)
	}
}

// Diagf logs to the diag stream.
func (s *Streams) Diagf(format string, args ...interface{}) {
	if s != nil && s.diag != nil {
		s.diag.Printf(format, args...)
	}
}

// Tracef logs to the trace stream.
func (s *Streams) Tracef(format string, args ...interface{}) {
	if s != nil && s.trace != nil {
		s.trace.Printf(format, args...)
	}
}
