package utils // package utils provides helpers for issuing and verifying session tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is a signed session JWT and its expiry.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// SessionClaims are the claims of a session token.  The subject is the
// session id; the name is the traveller the session books for.
type SessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// NewSessionToken signs an HS256 token for sessionID valid for ttl.
func NewSessionToken(secret, sessionID, name string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns its claims.  Only HS256 is
// accepted and the subject must be set.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return SessionClaims{}, fmt.Errorf("parse session token: %w", err)
	}
	if !tok.Valid || claims.Subject == "" {
		return SessionClaims{}, errors.New("invalid session token")
	}
	return claims, nil
}
