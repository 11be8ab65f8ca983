package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_IssueAndParse(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(42, "alice")
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.ClientID)
	assert.Equal(t, "alice", claims.Login())
}

func TestIssuer_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer, err := NewIssuer("secret", time.Minute, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	token, err := issuer.Issue(1, "alice")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestIssuer_WrongSecret(t *testing.T) {
	a, err := NewIssuer("secret-a", time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer("secret-b", time.Hour)
	require.NoError(t, err)

	token, err := a.Issue(1, "alice")
	require.NoError(t, err)

	_, err = b.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_WrongIssuer(t *testing.T) {
	a, err := NewIssuer("secret", time.Hour, WithIssuerName("other"))
	require.NoError(t, err)
	b, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, err := a.Issue(1, "alice")
	require.NoError(t, err)

	_, err = b.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Garbage(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuer_Invalid(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.Error(t, err)

	_, err = NewIssuer("secret", 0)
	assert.Error(t, err)
}
