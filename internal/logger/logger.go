// internal/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// Options selects the logger's level, encoding and outputs.
type Options struct {
	Debug bool
	// Format is "console" (colored, human friendly) or "json".
	Format string
	// File, when set, receives a JSON copy of every entry.
	File string
	// Quiet drops the stdout core; used by the TUI, which owns the terminal.
	Quiet bool
}

// New builds the process logger.
func New(opts Options) (*zap.Logger, io.Closer, error) {
	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	var cores []zapcore.Core
	if !opts.Quiet {
		enc, err := encoderFor(opts.Format)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level))
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		w, err := NewSafeFileWriter(opts.File, 2*time.Second, zap.NewNop())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig()), zapcore.AddSync(w), level))
		closer = w
	}

	if len(cores) == 0 {
		return zap.NewNop(), closer, nil
	}
	return zap.New(zapcore.NewTee(cores...)), closer, nil
}

func encoderFor(format string) (zapcore.Encoder, error) {
	switch format {
	case "", "console":
		return PrettyEncoder(), nil
	case "json":
		return zapcore.NewJSONEncoder(jsonConfig()), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func jsonConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		TimeKey:          "time",
		NameKey:          "logger",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      coloredLevel,
		EncodeTime:       clockTime,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})
}

func coloredLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(ColorCyan + "[DEBUG]" + ColorReset)
	case zapcore.InfoLevel:
		enc.AppendString(ColorGreen + "[INFO]" + ColorReset)
	case zapcore.WarnLevel:
		enc.AppendString(ColorYellow + "[WARN]" + ColorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(ColorRed + "[ERROR]" + ColorReset)
	case zapcore.FatalLevel:
		enc.AppendString(ColorRed + ColorBold + "[FATAL]" + ColorReset)
	default:
		enc.AppendString("[" + level.CapitalString() + "]")
	}
}

func clockTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// ShortAddress abbreviates a base58 address for display.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
