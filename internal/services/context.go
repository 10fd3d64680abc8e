package services

import "context"

type contextKey string

const (
	lineIDKey    contextKey = "line_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithLineID annotates context with the dialogue line identifier.
func WithLineID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, lineIDKey, id)
}

// LineIDFromContext extracts the dialogue line identifier if present.
func LineIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(lineIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a per-run correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
