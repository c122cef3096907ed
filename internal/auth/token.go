package auth

import (
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/core"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are carried by every issued token.
type Claims struct {
	UserID   string    `json:"userId"`
	Role     core.Role `json:"role"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

// Identity returns the caller the claims describe.
func (c *Claims) Identity() core.Identity {
	return core.Identity{OwnerID: c.UserID, Role: c.Role}
}

// TokenIssuer signs and verifies HS256 tokens with one shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for u that expires after the issuer's TTL.
func (t *TokenIssuer) Issue(u core.User) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID:   u.ID,
		Role:     u.Role,
		Email:    u.Email,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a signed token. Every failure wraps core.ErrUnauthorized.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", core.ErrUnauthorized)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no user", core.ErrUnauthorized)
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w: token has unknown role %q", core.ErrUnauthorized, claims.Role)
	}
	return claims, nil
}

// IsExpired reports whether err comes from an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
