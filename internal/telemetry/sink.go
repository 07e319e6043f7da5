package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Severity of a captured message.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

func (s Severity) level() slog.Level {
	switch s {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Sink receives unexpected errors and notable messages. Capture is fire-and-forget.
type Sink interface {
	Capture(ctx context.Context, msg string, severity Severity, fields map[string]any)
}

// CaptureError reports err at error severity. A nil err is ignored.
func CaptureError(ctx context.Context, sink Sink, err error, fields map[string]any) {
	Capture(ctx, sink, err, SeverityError, fields)
}

// Capture reports err at the given severity with fields plus the error text.
func Capture(ctx context.Context, sink Sink, err error, severity Severity, fields map[string]any) {
	if sink == nil || err == nil {
		return
	}
	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["error"] = err.Error()
	sink.Capture(ctx, err.Error(), severity, merged)
}

// SlogSink writes captures to a logger and mirrors them onto the active span.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Capture(ctx context.Context, msg string, severity Severity, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	spanAttrs := make([]attribute.KeyValue, 0, len(keys)+1)
	attrs = append(attrs, slog.String("severity", severity.String()))
	spanAttrs = append(spanAttrs, attribute.String("severity", severity.String()))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
		spanAttrs = append(spanAttrs, attribute.String(k, fmt.Sprint(fields[k])))
	}
	s.logger.LogAttrs(ctx, severity.level(), msg, attrs...)

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if severity == SeverityError {
		span.RecordError(errors.New(msg), trace.WithAttributes(spanAttrs...))
		span.SetStatus(codes.Error, msg)
		return
	}
	span.AddEvent(msg, trace.WithAttributes(spanAttrs...))
}

// Nop discards everything.
type Nop struct{}

func (Nop) Capture(context.Context, string, Severity, map[string]any) {}
