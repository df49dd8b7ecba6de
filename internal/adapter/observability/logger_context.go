package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type (
	loggerKey    struct{}
	requestIDKey struct{}
	userIDKey    struct{}
	userSlotKey  struct{}
)

// userSlot carries the user id authenticated deeper in the handler chain back out to
// middleware that wrapped the request before authentication ran.
type userSlot struct{ id atomic.Value }

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, lg)
}

// LoggerFromContext returns the request logger, or slog.Default when none is attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if lg, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

// ContextWithRequestID stores the originating request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}

// ContextWithUserID stores the authenticated user id and tags the request logger with it.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	if slot, ok := ctx.Value(userSlotKey{}).(*userSlot); ok {
		slot.id.Store(userID)
	}
	ctx = context.WithValue(ctx, userIDKey{}, userID)
	return ContextWithLogger(ctx, LoggerFromContext(ctx).With(slog.String("user_id", userID)))
}

// UserIDFromContext returns the authenticated user id or "".
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	uid, _ := ctx.Value(userIDKey{}).(string)
	return uid
}

// ContextWithUserSlot returns a context whose later ContextWithUserID calls, made on any
// derived context, are visible through AuthenticatedUser on the returned one.
func ContextWithUserSlot(ctx context.Context) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, userSlotKey{}, &userSlot{})
}

// AuthenticatedUser returns the user id set on ctx or recorded in its slot, or "".
func AuthenticatedUser(ctx context.Context) string {
	if uid := UserIDFromContext(ctx); uid != "" {
		return uid
	}
	if ctx == nil {
		return ""
	}
	if slot, ok := ctx.Value(userSlotKey{}).(*userSlot); ok {
		uid, _ := slot.id.Load().(string)
		return uid
	}
	return ""
}

// Detach keeps request values (logger, ids, span) but drops the parent's cancellation,
// so work started for a request outlives a client disconnect.
func Detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
