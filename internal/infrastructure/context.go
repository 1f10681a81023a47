package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

// NewRunID creates a unique identifier for one generator run.
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID stores a run ID in the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

// EnsureRunID returns ctx with a run ID, generating one if absent.
func EnsureRunID(ctx context.Context) context.Context {
	if RunID(ctx) == "" {
		return WithRunID(ctx, NewRunID())
	}
	return ctx
}

// RunID retrieves the run ID from the context, or "" when unset.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDContextKey).(string); ok {
		return id
	}
	return ""
}
