package middleware

import "context"

type contextKey string

const (
	ctxOwnerID   contextKey = "owner_id"
	ctxRequestID contextKey = "request_id"
)

// OwnerIDFromContext returns the partition owner resolved for the request.
func OwnerIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxOwnerID)
}

// WithOwnerID injects the owner identifier into the context for downstream handlers.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return withString(ctx, ctxOwnerID, ownerID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRequestID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, ctxRequestID, requestID)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}
