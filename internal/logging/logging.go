package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// TraceLevel enables V(2) messages.
const TraceLevel = zapcore.Level(-2)

// ParseLevel maps a --log-level value to a zap level. "trace" is accepted
// in addition to the zap level names.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.EqualFold(s, "trace") {
		return TraceLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: use trace, debug, info, warn or error", s)
	}
	return lvl, nil
}

// New returns a logger writing to w.
func New(w io.Writer, level, format string) (logr.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return logr.Discard(), err
	}

	opts := []zap.Opts{
		zap.WriteTo(w),
		zap.Level(lvl),
		zap.StacktraceLevel(zapcore.PanicLevel),
	}
	switch format {
	case "", FormatConsole:
		opts = append(opts, zap.ConsoleEncoder(func(c *zapcore.EncoderConfig) {
			c.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
			c.EncodeLevel = zapcore.CapitalLevelEncoder
		}))
	case FormatJSON:
		opts = append(opts, zap.JSONEncoder())
	default:
		return logr.Discard(), fmt.Errorf("invalid log format %q: use console or json", format)
	}

	return zap.New(opts...), nil
}
