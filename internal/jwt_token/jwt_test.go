package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var userID = id.UserID(uuid.New())
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(userID, id.RoleManager, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "manager", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(userID, id.RoleOfficer, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(userID, id.RoleOfficer, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_RefreshTokenIsNotAnAccessToken(t *testing.T) {
	refresh, err := jwtService.GenerateRefreshToken(userID, id.RoleOfficer, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(refresh)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))

	claims, err := jwtService.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}

func Test_AdapterCarriesRoleAndJTI(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(userID, id.RoleOfficer, expiresIn)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "officer", claims.Role)
	assert.NotEmpty(t, claims.JTI)
}
