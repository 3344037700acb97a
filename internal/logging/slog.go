package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = (*ZapLogger)(nil)
	_ Logger = Nop{}
)

// SlogLogger writes through a *slog.Logger. Records logged under an active
// span get trace_id and span_id attributes so they can be joined with the
// exported spans.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelDebug, msg, args)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(maskSecrets(args)...)}
}

func (s *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if !s.l.Enabled(ctx, level) {
		return
	}
	args = maskSecrets(args)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		// full slice expression: never write into the caller's array
		args = append(args[:len(args):len(args)],
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String())
	}
	s.l.Log(ctx, level, msg, args...)
}
