package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestGate() *Gate {
	return NewGate("test-access-secret", "test-refresh-secret", 15*time.Minute, time.Hour)
}

func TestIssueAndAuthenticate(t *testing.T) {
	req := require.New(t)
	gate := newTestGate()

	pair, err := gate.IssueTokens("user-1", "alice@example.com")
	req.NoError(err)
	req.NotEmpty(pair.AccessToken)
	req.NotEmpty(pair.RefreshToken)
	req.NotEqual(pair.AccessToken, pair.RefreshToken)

	identity, err := gate.Authenticate(pair.AccessToken)
	req.NoError(err)
	req.Equal("user-1", identity.UserID)
	req.Equal("alice@example.com", identity.Email)

	identity, err = gate.VerifyRefresh(pair.RefreshToken)
	req.NoError(err)
	req.Equal("user-1", identity.UserID)
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	req := require.New(t)
	gate := newTestGate()

	pair, err := gate.IssueTokens("user-1", "alice@example.com")
	req.NoError(err)

	// Tokens signed with the refresh secret must not pass the access gate.
	_, err = gate.Authenticate(pair.RefreshToken)
	req.ErrorIs(err, ErrInvalidToken)
}

func TestAuthenticateFailures(t *testing.T) {
	gate := newTestGate()

	t.Run("missing token", func(t *testing.T) {
		_, err := gate.Authenticate("")
		require.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := gate.Authenticate("not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewGate("other-secret", "other-refresh", 15*time.Minute, time.Hour)
		pair, err := other.IssueTokens("user-1", "a@example.com")
		require.NoError(t, err)

		_, err = gate.Authenticate(pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewGate("test-access-secret", "test-refresh-secret", -time.Minute, time.Hour)
		pair, err := expired.IssueTokens("user-1", "a@example.com")
		require.NoError(t, err)

		_, err = gate.Authenticate(pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
