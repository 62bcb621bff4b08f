package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	authSecret []byte
	authTTL    time.Duration
)

// InitAuthTokens configures the signing secret and lifetime of the auth
// cookie tokens. Must run before any Issue/Parse call.
func InitAuthTokens(secret string, ttl time.Duration) {
	if secret == "" {
		panic("auth token secret is empty")
	}
	authSecret = []byte(secret)
	authTTL = ttl
}

// IssueToken signs a token carrying the player id as the subject. The token
// expires together with the cookie that carries it.
func IssueToken(playerID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   playerID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(authTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(authSecret)
}

// ParseToken verifies the signature and time claims and returns the player
// id from the subject.
func ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return authSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, errors.New("invalid claims")
	}

	playerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.New("invalid subject")
	}
	return playerID, nil
}
