package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "caretrail/pkg/domain-errors"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "caretrail", "caretrail-evv")
	actorID := uuid.New()

	token, err := svc.GenerateAccessToken(actorID, "caregiver", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actorID.String(), claims.ActorID)
	assert.Equal(t, "caregiver", claims.Role)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService("test-signing-key", "caretrail", "caretrail-evv")

	token, err := svc.GenerateAccessToken(uuid.New(), "reviewer", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateToken_WrongKey(t *testing.T) {
	issuer := NewJWTService("key-one", "caretrail", "caretrail-evv")
	verifier := NewJWTService("key-two", "caretrail", "caretrail-evv")

	token, err := issuer.GenerateAccessToken(uuid.New(), "caregiver", time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService("test-signing-key", "caretrail", "caretrail-evv")

	_, err := svc.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
