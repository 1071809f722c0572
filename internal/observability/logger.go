// Package observability wires the service's logging, metrics and tracing
// surfaces to zerolog and Prometheus.
package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"polity/internal/core"
)

// NewLogger builds a timestamped zerolog logger writing to w at level.
// An empty level means info. A nil writer logs to stderr.
func NewLogger(w io.Writer, level string) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level = strings.TrimSpace(level); level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// ZerologAdapter exposes a zerolog.Logger as a core.Logger. Arguments are
// alternating key/value pairs; a trailing key without a value is logged
// under "arg".
type ZerologAdapter struct {
	Logger zerolog.Logger
}

var _ core.Logger = ZerologAdapter{}

// NewZerologAdapter wraps l.
func NewZerologAdapter(l zerolog.Logger) ZerologAdapter { return ZerologAdapter{Logger: l} }

func (a ZerologAdapter) Debug(msg string, args ...any) { emit(a.Logger.Debug(), msg, args) }
func (a ZerologAdapter) Info(msg string, args ...any)  { emit(a.Logger.Info(), msg, args) }
func (a ZerologAdapter) Warn(msg string, args ...any)  { emit(a.Logger.Warn(), msg, args) }
func (a ZerologAdapter) Error(msg string, args ...any) { emit(a.Logger.Error(), msg, args) }

func emit(ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			ev = ev.Interface("arg", args[i])
			break
		}
		key := fmt.Sprint(args[i])
		switch v := args[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case fmt.Stringer:
			ev = ev.Stringer(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
