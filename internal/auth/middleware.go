package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/piwi3910/storyfeed/internal/models"
	"github.com/piwi3910/storyfeed/internal/storage"
)

// bearerPrefix is the expected Authorization scheme.
const bearerPrefix = "Bearer"

// UserSource is the subset of the store the middleware needs.
type UserSource interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Middleware resolves the current user once per request from the
// Authorization header.
type Middleware struct {
	issuer *Issuer
	users  UserSource
	logger *zap.Logger
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(issuer *Issuer, users UserSource, logger *zap.Logger) *Middleware {
	if issuer == nil {
		panic("issuer cannot be nil")
	}
	if users == nil {
		panic("user source cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Middleware{issuer: issuer, users: users, logger: logger}
}

// Handler returns the gin handler. Behavior:
//   - no Authorization header, or a bare "Bearer" with no token: the
//     request proceeds anonymously;
//   - a token that fails verification aborts the whole request with 401
//     before any resolver runs;
//   - a verified token whose user no longer exists proceeds anonymously.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		ctx := ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		userID, err := m.issuer.Verify(token)
		if err != nil {
			m.logger.Warn("rejected request with invalid token",
				zap.String("client_ip", c.ClientIP()),
				zap.String("request_id", requestID),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "invalid or expired token",
				"code":    http.StatusUnauthorized,
			})
			return
		}

		user, err := m.users.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// A valid token for a since-deleted user is anonymous.
				m.logger.Debug("token references missing user",
					zap.Uint("user_id", userID),
					zap.String("request_id", requestID),
				)
				c.Next()
				return
			}

			m.logger.Error("failed to look up token user",
				zap.Uint("user_id", userID),
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "InternalError",
				"message": "authentication temporarily unavailable",
				"code":    http.StatusInternalServerError,
			})
			return
		}

		c.Set("user", user)
		c.Request = c.Request.WithContext(ContextWithUser(c.Request.Context(), user))

		m.logger.Debug("request authenticated",
			zap.Uint("user_id", user.ID),
			zap.String("username", user.Username),
			zap.String("request_id", requestID),
		)

		c.Next()
	}
}

// bearerToken extracts the token segment from an Authorization header
// value. The second return is false when there is nothing to verify.
func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) {
		return "", false
	}
	return parts[1], true
}
