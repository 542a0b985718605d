package logger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type ctxKey uint8

const (
	keyLogger ctxKey = iota
	keyRID
	keyUpdate
	keyHandler
	keyTrace
)

// updateMeta identifies the Telegram update a context serves.
type updateMeta struct {
	updateID int
	userID   int64
	chatID   int64
}

// traceMeta ties the lines of one console event together; the span marks a
// single cloud call inside it.
type traceMeta struct {
	traceID string
	spanID  string
}

func withValue(ctx context.Context, key ctxKey, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func valueOf[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	if v, ok := ctx.Value(key).(T); ok {
		return v
	}
	return zero
}

// WithLogger stores log in ctx. A nil log leaves ctx as is.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if l := valueOf[*slog.Logger](ctx, keyLogger); l != nil {
		return l
	}
	return L
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withValue(ctx, keyRID, rid)
}

// RIDFrom returns the correlation id of ctx.
func RIDFrom(ctx context.Context) string { return valueOf[string](ctx, keyRID) }

// WithUpdateMeta attaches the update, user and chat ids of a Telegram update.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withValue(ctx, keyUpdate, updateMeta{updateID: updateID, userID: userID, chatID: chatID})
}

func UpdateIDFrom(ctx context.Context) int { return valueOf[updateMeta](ctx, keyUpdate).updateID }
func UserIDFrom(ctx context.Context) int64 { return valueOf[updateMeta](ctx, keyUpdate).userID }
func ChatIDFrom(ctx context.Context) int64 { return valueOf[updateMeta](ctx, keyUpdate).chatID }

// WithHandler names the route serving ctx. An empty name is ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyHandler, handler)
}

// HandlerFrom returns the route name of ctx.
func HandlerFrom(ctx context.Context) string { return valueOf[string](ctx, keyHandler) }

// WithTrace sets the trace and span ids. Empty values keep the ones already
// in ctx.
func WithTrace(ctx context.Context, traceID, spanID string) context.Context {
	t := valueOf[traceMeta](ctx, keyTrace)
	if traceID != "" {
		t.traceID = traceID
	}
	if spanID != "" {
		t.spanID = spanID
	}
	return withValue(ctx, keyTrace, t)
}

// StartTrace opens a fresh trace for one console event.
func StartTrace(ctx context.Context) context.Context {
	return withValue(ctx, keyTrace, traceMeta{traceID: newID()})
}

// StartSpan opens a span inside the trace of ctx, starting a trace when
// there is none.
func StartSpan(ctx context.Context) context.Context {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = newID()
	}
	return WithTrace(ctx, traceID, newID()[:8])
}

func TraceIDFrom(ctx context.Context) string { return valueOf[traceMeta](ctx, keyTrace).traceID }
func SpanIDFrom(ctx context.Context) string  { return valueOf[traceMeta](ctx, keyTrace).spanID }

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
