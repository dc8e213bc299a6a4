package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorTokenService_RoundTrip(t *testing.T) {
	tokens, err := NewOperatorTokenService("operator-secret")
	require.NoError(t, err)

	token, err := tokens.Issue("ops-user", time.Hour)
	require.NoError(t, err)

	subject, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-user", subject)
}

func TestOperatorTokenService_WrongSecret(t *testing.T) {
	issuer, err := NewOperatorTokenService("operator-secret")
	require.NoError(t, err)
	verifier, err := NewOperatorTokenService("another-secret")
	require.NoError(t, err)

	token, err := issuer.Issue("ops-user", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestOperatorTokenService_Expired(t *testing.T) {
	tokens, err := NewOperatorTokenService("operator-secret")
	require.NoError(t, err)

	token, err := tokens.Issue("ops-user", -time.Minute)
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	assert.Error(t, err)
}

func TestNewOperatorTokenService_EmptySecret(t *testing.T) {
	_, err := NewOperatorTokenService("")
	assert.Error(t, err)
}
