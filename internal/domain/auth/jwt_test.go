package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTService() *JWTService {
	return NewJWTService(DefaultJWTConfig("test-secret"))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := testJWTService()

	signed, expiresAt, err := svc.GenerateAccessToken(7, "alice", []string{"usuarios", "hilados", "tejidos"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"usuarios", "hilados", "tejidos"}, claims.Accesses)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Contains(t, claims.Audience, Audience)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := testJWTService()
	sessionID := uuid.New()

	signed, _, err := svc.GenerateRefreshToken(7, "alice", sessionID)
	require.NoError(t, err)

	claims, sid, err := svc.ValidateRefreshToken(signed)
	require.NoError(t, err)
	assert.Equal(t, sessionID, sid)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestValidateAccessTokenRejectsRefreshToken(t *testing.T) {
	svc := testJWTService()

	signed, _, err := svc.GenerateRefreshToken(7, "alice", uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(signed)
	require.Error(t, err)
}

func TestValidateRefreshTokenRejectsAccessToken(t *testing.T) {
	svc := testJWTService()

	signed, _, err := svc.GenerateAccessToken(7, "alice", nil)
	require.NoError(t, err)

	_, _, err = svc.ValidateRefreshToken(signed)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	signed, _, err := svc.GenerateAccessToken(7, "alice", nil)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(signed)
	require.Error(t, err)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	signed, _, err := testJWTService().GenerateAccessToken(7, "alice", nil)
	require.NoError(t, err)

	other := NewJWTService(DefaultJWTConfig("another-secret"))
	_, err = other.ValidateAccessToken(signed)
	require.Error(t, err)
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mecsa",
			Subject:   "7",
			Audience:  jwt.ClaimStrings{"somebody-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username:  "alice",
		TokenType: TokenTypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = testJWTService().ValidateAccessToken(signed)
	require.Error(t, err)
}

func TestValidateRejectsUnsignedToken(t *testing.T) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenType: TokenTypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = testJWTService().ValidateAccessToken(signed)
	require.Error(t, err)
}
