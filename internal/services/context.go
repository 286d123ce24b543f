package services

import "context"

type contextKey string

const (
	sourceKey    contextKey = "source"
	playtypeKey  contextKey = "playtype"
	requestIDKey contextKey = "request_id"
)

// WithSource annotates context with the conversion source tag (lr2, beatoraja, usc).
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the source tag if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(sourceKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithPlaytype annotates context with the batch playtype being submitted.
func WithPlaytype(ctx context.Context, playtype string) context.Context {
	if playtype == "" {
		return ctx
	}
	return context.WithValue(ctx, playtypeKey, playtype)
}

// PlaytypeFromContext returns the playtype if present.
func PlaytypeFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(playtypeKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
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
