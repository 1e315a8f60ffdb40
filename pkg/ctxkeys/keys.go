// Package ctxkeys defines typed context keys to avoid SA1029 lint warnings
// and prevent key collisions across packages.
package ctxkeys

import "context"

// Key is a typed context key to prevent collisions.
type Key string

// Session keys. The actor ID is the identity provider's numeric user ID.
const (
	KeyActorID  Key = "actor_id"
	KeyUsername Key = "username"
	KeyRole     Key = "role"
	KeyAuthType Key = "auth_type"
)

// Request keys
const (
	KeyRequestID Key = "request_id"
)

// WithActorID returns a child context carrying the actor ID.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, KeyActorID, actorID)
}

// GetActorID extracts actor_id from context.
func GetActorID(ctx context.Context) string {
	if v, ok := ctx.Value(KeyActorID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID returns a child context carrying the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// GetRequestID extracts request_id from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(KeyRequestID).(string); ok {
		return v
	}
	return ""
}
