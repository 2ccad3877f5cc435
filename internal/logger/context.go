package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	staffIDKey   ctxKey = "staff_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithStaffID tags the context with the authenticated staff member so every
// log line of the request carries it.
func WithStaffID(ctx context.Context, staffID string) context.Context {
	return context.WithValue(ctx, staffIDKey, staffID)
}

func StaffIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(staffIDKey).(string); ok {
		return v
	}
	return ""
}

// FromCtx returns logger with request_id (and staff_id when known) added
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if reqID := RequestIDFrom(ctx); reqID != "" {
		l = l.With(zap.String("request_id", reqID))
	}
	if staff := StaffIDFrom(ctx); staff != "" {
		l = l.With(zap.String("staff_id", staff))
	}
	return l
}
