package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 72 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the authenticated identity inside the bearer token.
// The user ID travels in the registered Subject claim.
type Claims struct {
	Role string `json:"role"`
	jwtlib.RegisteredClaims
}

// GenerateToken signs a bearer token for the given user.
func GenerateToken(userID uint, role string, secret string) (string, error) {
	return GenerateTokenWithTTL(userID, role, secret, defaultTokenTTL)
}

// GenerateTokenWithTTL signs a bearer token with an explicit lifetime.
func GenerateTokenWithTTL(userID uint, role string, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET is not configured")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			Issuer:    "happylearn",
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry and returns the claims.
func ParseToken(tokenString string, secret string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not configured")
	}

	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserIDFromClaims extracts the numeric user ID from the Subject claim.
func UserIDFromClaims(claims *Claims) (uint, error) {
	var id uint
	if _, err := fmt.Sscanf(claims.Subject, "%d", &id); err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
