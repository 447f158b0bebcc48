package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
)

var jwtService = NewService("test-signing-key", "registre-test", time.Hour)

func Test_GenerateToken(t *testing.T) {
	userID := id.NewUserID()

	token, err := jwtService.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "registre-test", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_Validate_InvalidToken(t *testing.T) {
	_, err := jwtService.Validate("invalid-token-string")
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_Validate_ExpiredToken(t *testing.T) {
	expired := NewService("test-signing-key", "registre-test", -time.Hour)

	token, err := expired.GenerateToken(id.NewUserID())
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func Test_Validate_WrongKey(t *testing.T) {
	other := NewService("another-signing-key", "registre-test", time.Hour)

	token, err := other.GenerateToken(id.NewUserID())
	require.NoError(t, err)

	_, err = jwtService.Validate(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_Adapter(t *testing.T) {
	userID := id.NewUserID()
	token, err := jwtService.GenerateToken(userID)
	require.NoError(t, err)

	claims, err := NewAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)

	_, err = NewAdapter(jwtService).ValidateToken("garbage")
	assert.Error(t, err)
}
