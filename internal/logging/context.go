// internal/logging/context.go
package logging

import (
	"context"

	"go.uber.org/zap"
)

type (
	sessionCtxKey struct{}
	requestCtxKey struct{}
	eventCtxKey   struct{}
	loggerCtxKey  struct{}
)

// maxIDLen bounds IDs copied into log fields.
const maxIDLen = 128

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)

	if event := EventFromContext(ctx); event != "" {
		fields = append(fields, zap.String("hook.event", event))
	}
	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		fields = append(fields, zap.String("session.id", sessionID))
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

func truncateID(id string) string {
	if len(id) > maxIDLen {
		return id[:maxIDLen]
	}
	return id
}

// WithSessionID adds the agent session ID to context. Empty IDs are ignored.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionCtxKey{}, truncateID(sessionID))
}

// SessionIDFromContext extracts session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionCtxKey{}).(string)
	return s
}

// WithRequestID adds a per-invocation request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, truncateID(requestID))
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	r, _ := ctx.Value(requestCtxKey{}).(string)
	return r
}

// WithEvent adds the hook event name to context.
func WithEvent(ctx context.Context, event string) context.Context {
	if event == "" {
		return ctx
	}
	return context.WithValue(ctx, eventCtxKey{}, event)
}

// EventFromContext extracts the hook event name from context.
func EventFromContext(ctx context.Context) string {
	e, _ := ctx.Value(eventCtxKey{}).(string)
	return e
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
