// Package logging defines a minimal structured-logging interface used across
// flagkeeper. SlogLogger and ZapLogger are the two backends; New picks one
// from the configured format.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "challenge loaded", "id", id, "type", variant)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Supported values of the log_format setting.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatZap  = "zap"
)

// New builds a Logger for format writing to w. The zap backend always writes
// to stderr through its production config and ignores w.
func New(format string, w io.Writer) (Logger, error) {
	switch format {
	case "", FormatJSON:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil))), nil
	case FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, nil))), nil
	case FormatZap:
		return NewZapProductionLogger()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// secretKeys are attribute keys whose values never reach a log sink.
var secretKeys = map[string]bool{
	"flag":     true,
	"password": true,
	"secret":   true,
	"token":    true,
}

const masked = "[redacted]"

// maskSecrets returns args with the values of secretKeys replaced. args is
// returned as is when nothing needs masking.
func maskSecrets(args []any) []any {
	var out []any
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || !secretKeys[key] {
			continue
		}
		if out == nil {
			out = append([]any(nil), args...)
		}
		out[i+1] = masked
	}
	if out == nil {
		return args
	}
	return out
}

// Nop discards everything. Handy in tests and for optional dependencies.
type Nop struct{}

func (Nop) Debug(context.Context, string, ...any) {}
func (Nop) Info(context.Context, string, ...any)  {}
func (Nop) Warn(context.Context, string, ...any)  {}
func (Nop) Error(context.Context, string, ...any) {}
func (n Nop) With(...any) Logger                  { return n }
