package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/storyfeed/internal/auth"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := auth.NewIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := auth.NewIssuer("secret-a", time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = auth.NewIssuer("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := auth.NewIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(7)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := auth.NewIssuer("test-secret", time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, "token %q", token)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("hunter2abc")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2abc", hash)

	assert.True(t, auth.CheckPassword(hash, "hunter2abc"))
	assert.False(t, auth.CheckPassword(hash, "wrong-password"))
	assert.False(t, auth.CheckPassword("not-a-hash", "hunter2abc"))
}
