package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every way a guest token can fail verification.
var ErrInvalidToken = errors.New("invalid guest token")

// GuestTokens mints and verifies the anonymous player identity. A guest gets
// a random UUID subject signed into a JWT; the token is the only place the
// identity lives, so losing it means a fresh board.
type GuestTokens struct {
	secret   []byte
	lifetime time.Duration
}

// NewGuestTokens creates a guest token issuer. A zero lifetime means 90 days.
func NewGuestTokens(secret string, lifetime time.Duration) *GuestTokens {
	if lifetime == 0 {
		lifetime = 90 * 24 * time.Hour
	}
	return &GuestTokens{
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

// Issue creates a token for a brand-new guest and returns it with its subject.
func (g *GuestTokens) Issue() (token string, playerID string, err error) {
	playerID = "guest-" + uuid.New().String()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   playerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.lifetime)),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign guest token: %w", err)
	}
	return token, playerID, nil
}

// Verify checks the signature and expiry and returns the guest's player id.
func (g *GuestTokens) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
