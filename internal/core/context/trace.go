package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext carries request correlation information.
// ActionID doubles as the audit correlation id: every audit row written for
// one API call shares it.
type TraceContext struct {
	ActionID  string
	RequestID string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetActionID returns the audit correlation id from context or "".
func GetActionID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.ActionID
	}
	return ""
}

// NewTraceContext creates a TraceContext with generated ids.
func NewTraceContext() *TraceContext {
	return &TraceContext{
		ActionID:  uuid.New().String(),
		RequestID: uuid.New().String(),
	}
}
