package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthenticator_RoundTrip(t *testing.T) {
	a, err := NewJWTAuthenticator("secret", "travel-report", time.Hour)
	require.NoError(t, err)

	token, err := a.Issue(42)
	require.NoError(t, err)

	id, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestJWTAuthenticator_Rejects(t *testing.T) {
	a, err := NewJWTAuthenticator("secret", "travel-report", time.Hour)
	require.NoError(t, err)
	token, err := a.Issue(42)
	require.NoError(t, err)

	other, err := NewJWTAuthenticator("another-secret", "travel-report", time.Hour)
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	foreign, err := NewJWTAuthenticator("secret", "someone-else", time.Hour)
	require.NoError(t, err)
	_, err = foreign.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong issuer")

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = a.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTAuthenticator("", "x", time.Hour)
	assert.Error(t, err)
}
