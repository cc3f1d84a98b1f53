package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := NewSessionToken("s3cret", "sess-1", "Asha", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseSessionToken("s3cret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "sess-1" || claims.Name != "Asha" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseSessionToken_Rejects(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		tok, _ := NewSessionToken("s3cret", "sess-1", "Asha", time.Hour)
		if _, err := ParseSessionToken("other", tok.Token); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("expired", func(t *testing.T) {
		tok, _ := NewSessionToken("s3cret", "sess-1", "Asha", -time.Minute)
		if _, err := ParseSessionToken("s3cret", tok.Token); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("other algorithm", func(t *testing.T) {
		claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sess-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s3cret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := ParseSessionToken("s3cret", raw); err == nil {
			t.Fatalf("expected HS512 token to be rejected")
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		tok, _ := NewSessionToken("s3cret", "", "Asha", time.Hour)
		if _, err := ParseSessionToken("s3cret", tok.Token); err == nil {
			t.Fatalf("expected error")
		}
	})
}
