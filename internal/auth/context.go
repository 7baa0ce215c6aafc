package auth

import (
	"context"

	"github.com/piwi3910/storyfeed/internal/models"
)

// Context keys for per-request authentication data.
type contextKey string

const (
	// userContextKey is the key for storing the current user in context.
	userContextKey contextKey = "current_user"

	// requestIDContextKey is the key for storing the request ID in context.
	requestIDContextKey contextKey = "request_id"
)

// ContextWithUser adds the resolved current user to the context.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the current user from the context.
// Returns nil for anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from the context.
// Returns an empty string if none is set.
func RequestIDFromContext(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDContextKey).(string)
	if !ok {
		return ""
	}
	return requestID
}
