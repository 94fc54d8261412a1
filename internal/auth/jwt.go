// Package auth provides password authentication, token issuance and the
// request middleware that turns tokens into principals
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/expenseflow/go-core/pkg/types"
)

// JWTConfig configures token issuance and validation
type JWTConfig struct {
	Secret   string        // HS256 shared secret
	Issuer   string        // Expected iss claim
	TokenTTL time.Duration // Lifetime of issued tokens
}

// DefaultJWTConfig returns a default JWT configuration. The secret must
// still be provided by the caller.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		Issuer:   "expenseflow",
		TokenTTL: 24 * time.Hour,
	}
}

// Claims carried by access tokens. Role and company are included so
// request logging can tag entries before the user record loads, but the
// middleware always rebuilds the principal from the stored user.
type Claims struct {
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 access tokens
type TokenService struct {
	config JWTConfig
	secret []byte
}

// NewTokenService creates a token service
func NewTokenService(cfg JWTConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "expenseflow"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &TokenService{config: cfg, secret: []byte(cfg.Secret)}, nil
}

// Issue creates a signed token for the user
func (s *TokenService) Issue(u *types.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:      string(u.Role),
		CompanyID: u.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string and returns its claims
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc,
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// keyFunc pins the algorithm to HS256 to prevent algorithm confusion
func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
	}
	return s.secret, nil
}

// TTL returns the configured token lifetime
func (s *TokenService) TTL() time.Duration {
	return s.config.TokenTTL
}
