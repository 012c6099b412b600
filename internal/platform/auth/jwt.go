package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dzemat/internal/platform/config"
	"dzemat/internal/platform/session"
)

// Claims mirror the cookie session so bearer clients resolve through the
// same identity path.
type Claims struct {
	UserID       string `json:"uid"`
	TenantID     string `json:"tid"`
	IsSuperAdmin bool   `json:"sa,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Session() session.Session {
	return session.Session{UserID: c.UserID, TenantID: c.TenantID, IsSuperAdmin: c.IsSuperAdmin}
}

type TokenService struct {
	config config.JWTConfig
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{config: cfg}
}

func (s *TokenService) GenerateAccessToken(sess session.Session) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)
	claims := Claims{
		UserID:       sess.UserID,
		TenantID:     sess.TenantID,
		IsSuperAdmin: sess.IsSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "dzemat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	return signed, expiresAt, err
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer("dzemat"))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
