package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidCredentials is returned by CheckCredentials on a bad pair.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken is returned when a token fails signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")
)

// TokenIssuer issues and verifies HS256-signed tokens with subject=username,
// issued-at, and a bounded lifetime. The credential pair is a development
// stub; real deployments delegate to an external credential store.
type TokenIssuer struct {
	secret   []byte
	tokenTTL time.Duration
	username string
	password string
}

// NewTokenIssuer creates a TokenIssuer. When secret is empty a random 32-byte
// key is generated, so issued tokens do not survive process restarts.
func NewTokenIssuer(secret string, tokenTTL time.Duration, username, password string) (*TokenIssuer, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("auth credentials are required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 15 * time.Minute
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	return &TokenIssuer{
		secret:   key,
		tokenTTL: tokenTTL,
		username: username,
		password: password,
	}, nil
}

// CheckCredentials compares the supplied pair against the configured stub.
func (t *TokenIssuer) CheckCredentials(username, password string) error {
	if username != t.username || password != t.password {
		return ErrInvalidCredentials
	}
	return nil
}

// Issue returns a signed token for the username with iat=now and
// exp=now+tokenTTL.
func (t *TokenIssuer) Issue(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the token's subject.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
