package monitoring

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Level selects which streams are enabled.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelInfo
	LevelDebug
)

// ParseLevel accepts off, error, info, debug and trace (an alias for debug).
// The empty string means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LevelOff, nil
	case "error", "ops":
		return LevelError, nil
	case "", "info", "diag":
		return LevelInfo, nil
	case "debug", "trace":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q: expected off, error, info or debug", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelError:
		return zerolog.ErrorLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.Disabled
	}
}
