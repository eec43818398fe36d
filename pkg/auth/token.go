package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSigningMethod = jwt.SigningMethodHS256

const (
	GoogleSessionTTL = 24 * time.Hour
	GuestSessionTTL  = 24 * time.Hour
	EmailSessionTTL  = 7 * 24 * time.Hour
	AdminSessionTTL  = 604800 * time.Second
)

// Issue signs claims with secret and stamps iat/exp relative to now.
func Issue(secret string, now time.Time, ttl time.Duration, claims Claims) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString as of now.
// Any failure means the caller is unauthenticated. Expiry has whole-second
// precision: a token is still valid at exactly exp and fails from exp+1s.
func Verify(secret, tokenString string, now time.Time) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Second),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	_, err := parser.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
