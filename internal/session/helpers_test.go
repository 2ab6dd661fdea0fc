package session

import (
	"testing"
	"time"

	"bondbridge/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

func jwtIssuedAt(t time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: "a@x.com", IssuedAt: jwt.NewNumericDate(t)}
}

func mustIssuer(t *testing.T, codec *auth.Codec) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer(codec, testAuthConfig())
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return issuer
}
