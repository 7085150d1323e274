package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attest/pkg/domain-errors"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-signing-key", "attest", "attest-api")

	raw, err := svc.GenerateAccessToken("ada", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "ada", claims.Actor)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("test-signing-key", "attest", "attest-api")

	raw, err := svc.GenerateAccessToken("ada", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(raw)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTService_RejectsWrongKey(t *testing.T) {
	svc := NewJWTService("test-signing-key", "attest", "attest-api")
	other := NewJWTService("different-key", "attest", "attest-api")

	raw, err := other.GenerateAccessToken("ada", time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(raw)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
