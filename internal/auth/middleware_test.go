package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/piwi3910/storyfeed/internal/auth"
	"github.com/piwi3910/storyfeed/internal/models"
	"github.com/piwi3910/storyfeed/internal/storage"
)

// fakeUsers is an in-memory UserSource.
type fakeUsers struct {
	users map[uint]*models.User
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

// newAuthRouter builds a router whose single handler reports the user the
// middleware resolved.
func newAuthRouter(t *testing.T, issuer *auth.Issuer, users auth.UserSource) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := auth.NewMiddleware(issuer, users, zap.NewNop())
	router.Use(mw.Handler())
	router.GET("/whoami", func(c *gin.Context) {
		user := auth.UserFromContext(c.Request.Context())
		if user == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, user.Username)
	})
	return router
}

func TestMiddleware(t *testing.T) {
	issuer := auth.NewIssuer("test-secret", time.Hour)
	users := &fakeUsers{users: map[uint]*models.User{
		1: {ID: 1, Username: "alice"},
	}}
	router := newAuthRouter(t, issuer, users)

	aliceToken, err := issuer.Issue(1)
	require.NoError(t, err)
	ghostToken, err := issuer.Issue(99)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no header is anonymous",
			header:     "",
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name:       "bearer with no token is anonymous",
			header:     "Bearer",
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name:       "non-bearer scheme is anonymous",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name:       "valid token resolves the user",
			header:     "Bearer " + aliceToken,
			wantStatus: http.StatusOK,
			wantBody:   "alice",
		},
		{
			name:       "invalid token is fatal for the request",
			header:     "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid token for deleted user is anonymous",
			header:     "Bearer " + ghostToken,
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	expired := auth.NewIssuer("test-secret", -time.Minute)
	fresh := auth.NewIssuer("test-secret", time.Hour)
	users := &fakeUsers{users: map[uint]*models.User{1: {ID: 1, Username: "alice"}}}
	router := newAuthRouter(t, fresh, users)

	token, err := expired.Issue(1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}
