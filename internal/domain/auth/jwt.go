package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mecsa/internal/core/apperror"
)

// Token types embedded in the claims.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Audience stamped on every issued token.
const Audience = "authenticated"

// JWTConfig holds signing configuration.
type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// DefaultJWTConfig returns the standard TTLs.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:          secret,
		Issuer:          "mecsa",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 8 * time.Hour,
	}
}

// AccessClaims carry the permission snapshot of the user. Accesses holds
// the names of the guarded surfaces granted through the user's roles.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username  string   `json:"username"`
	Accesses  []string `json:"accesos"`
	TokenType string   `json:"type"`
}

// RefreshClaims bind the token to one session.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	TokenType string `json:"type"`
}

// JWTService signs and validates both token kinds.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateAccessToken signs a short-lived access token.
func (s *JWTService) GenerateAccessToken(userID int, username string, accesses []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.Itoa(userID),
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:  username,
		Accesses:  accesses,
		TokenType: TokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// GenerateRefreshToken signs a session-bound refresh token.
func (s *JWTService) GenerateRefreshToken(userID int, username string, sessionID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.RefreshTokenTTL)

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.Itoa(userID),
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:  username,
		SessionID: sessionID.String(),
		TokenType: TokenTypeRefresh,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken parses an access token and checks type and audience.
func (s *JWTService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, apperror.NewUnauthorized("not an access token")
	}
	return claims, nil
}

// ValidateRefreshToken parses a refresh token and checks type, audience and
// session id shape.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*RefreshClaims, uuid.UUID, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, uuid.Nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, uuid.Nil, apperror.NewUnauthorized("not a refresh token")
	}
	sid, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, uuid.Nil, apperror.NewUnauthorized("malformed session id")
	}
	return claims, sid, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithAudience(Audience))
	if err != nil {
		return apperror.NewUnauthorized("invalid token").WithCause(err)
	}
	if !token.Valid {
		return apperror.NewUnauthorized("invalid token")
	}
	return nil
}
