package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := NewVerifier("test_secret_key_1234567890", 15*time.Minute)

	token, err := v.Issue("550e8400-e29b-41d4-a716-446655440000", "user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestVerifier_Verify_InvalidTokens(t *testing.T) {
	secret := "test_secret_key_1234567890"
	v := NewVerifier(secret, 15*time.Minute)

	valid, err := v.Issue("user-1", "")
	require.NoError(t, err)
	expired, err := NewVerifier(secret, -time.Hour).Issue("user-1", "")
	require.NoError(t, err)
	foreign, err := NewVerifier("wrong_secret_key", 15*time.Minute).Issue("user-1", "")
	require.NoError(t, err)
	noSubject, err := v.Issue("", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: expired},
		{name: "wrong secret key", token: foreign},
		{name: "tampered token", token: valid + "tampered"},
		{name: "missing subject", token: noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}
