package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for any token that fails parsing or verification
var ErrInvalidToken = errors.New("invalid session token")

const tokenIssuerName = "blog-content-api"

// TokenIssuer signs and verifies HS256 session tokens whose subject is the user ID
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer with the given secret and lifetime
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for the user and its expiry time
func (i *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuerName,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expires, nil
}

// Parse verifies the token and returns the user ID it was issued for
func (i *TokenIssuer) Parse(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" || !claims.VerifyIssuer(tokenIssuerName, true) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// ExtractTokenFromHeader returns the bearer token of an Authorization header
func ExtractTokenFromHeader(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
