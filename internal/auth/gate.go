package auth

import (
	"context"
	"errors"

	"github.com/piwi3910/storyfeed/internal/models"
)

// Authorization gate errors. Resolvers translate these into their
// transport-level error shapes.
var (
	// ErrUnauthenticated is returned when an operation requires a signed-in
	// user and the request is anonymous.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrUnauthorized is returned when the current user lacks the rights
	// for an operation.
	ErrUnauthorized = errors.New("not authorized")
)

// CurrentUser returns the authenticated user from the context, or
// ErrUnauthenticated for anonymous requests.
func CurrentUser(ctx context.Context) (*models.User, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireAdmin returns the authenticated user if it is an admin.
// Anonymous requests get ErrUnauthenticated, non-admins ErrUnauthorized.
func RequireAdmin(ctx context.Context) (*models.User, error) {
	user, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, ErrUnauthorized
	}
	return user, nil
}
