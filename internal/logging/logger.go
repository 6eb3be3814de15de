// Package logging builds the process logger and holds the helpers that keep
// personal data out of log output.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// New builds a zap logger writing to stdout, console-encoded unless json is set.
func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			NameKey: "component",
		},
	}
	return cfg.Build()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// ContactFields describes which contact values were captured without
// revealing any of them.
func ContactFields(c types.ContactRecord) []zap.Field {
	return []zap.Field{
		zap.Bool("has_name", c.Name != ""),
		zap.Bool("has_email", c.Email != ""),
		zap.Bool("has_phone", c.Phone != ""),
		zap.Bool("has_address", c.Address != ""),
	}
}

// TokenField logs a token by prefix only; the full value is a bearer credential.
func TokenField(token string) zap.Field {
	if len(token) > 8 {
		token = token[:8]
	}
	return zap.String("token_prefix", token)
}
