package monitoring

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ZerologSink is a JSON Sink built on zerolog. Ops maps to error, diag to
// info and trace to debug, so log shippers can filter on the level field.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink writes JSON lines to w tagged with component.
func NewZerologSink(w io.Writer, level Level, component string) *ZerologSink {
	zl := zerolog.New(w).
		Level(level.zerolog()).
		With().
		Timestamp().
		Str("component", component).
		Logger()
	return &ZerologSink{logger: zl}
}

// Opsf logs at error level.
func (z *ZerologSink) Opsf(format string, args ...interface{}) {
	z.logger.Error().Msgf(format, args...)
}

// Diagf logs at info level.
func (z *ZerologSink) Diagf(format string, args ...interface{}) {
	z.logger.Info().Msgf(format, args...)
}

// Tracef logs at debug level.
func (z *ZerologSink) Tracef(format string, args ...interface{}) {
	z.logger.Debug().Msgf(format, args...)
}

// NewSink builds the Sink selected by format ("text" or "json").
func NewSink(format string, level Level, w io.Writer, component string) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return NewStreams("["+component+"] ", WritersForLevel(level, w)), nil
	case "json":
		return NewZerologSink(w, level, component), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: expected text or json", format)
	}
}
