package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"bondbridge/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var testAuthConfig = config.AuthConfig{
	SigningKey: "0123456789abcdef0123456789abcdef",
	Issuer:     "bondbridge",
	Audience:   "bondbridge-clients",
	SessionTTL: 7 * 24 * time.Hour,
	AppTTL:     365 * 24 * time.Hour,
}

func newTestCodec(t *testing.T, now time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(testAuthConfig)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	c.now = func() time.Time { return now }
	return c
}

func TestSignAndVerify(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := newTestCodec(t, now)

	tok, err := c.Sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "a@x.com"},
		PrincipalID:      "p-1",
		Roles:            jwt.ClaimStrings{"common_user_access"},
	}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if n := strings.Count(tok, "."); n != 2 {
		t.Fatalf("expected three segments, got %d dots", n)
	}

	claims, err := c.VerifyAndParse(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "a@x.com" || claims.PrincipalID != "p-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "bondbridge" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestSign_DeterministicWithinSameSecond(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := newTestCodec(t, now)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}, PrincipalID: "p"}

	a, err := c.Sign(claims, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, err := c.Sign(claims, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if a != b {
		t.Fatalf("expected identical tokens")
	}
}

func TestVerify_RejectsExpiredWithZeroLeeway(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := newTestCodec(t, now)
	tok, err := c.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}, PrincipalID: "p"}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	c.now = func() time.Time { return now.Add(time.Minute + time.Second) }
	if _, err := c.VerifyAndParse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsWrongKeyIssuerAudience(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := newTestCodec(t, now)
	tok, err := c.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}, PrincipalID: "p"}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for name, mutate := range map[string]func(*config.AuthConfig){
		"key":      func(a *config.AuthConfig) { a.SigningKey = "another-key-another-key-another-key" },
		"issuer":   func(a *config.AuthConfig) { a.Issuer = "someone-else" },
		"audience": func(a *config.AuthConfig) { a.Audience = "other-clients" },
	} {
		cfg := testAuthConfig
		mutate(&cfg)
		other, err := NewCodec(cfg)
		if err != nil {
			t.Fatalf("%s: codec: %v", name, err)
		}
		other.now = func() time.Time { return now }
		if _, err := other.VerifyAndParse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := newTestCodec(t, now)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			Issuer:    testAuthConfig.Issuer,
			Audience:  jwt.ClaimStrings{testAuthConfig.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		PrincipalID: "p",
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := c.VerifyAndParse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseUnverified_IgnoresExpiryAndSignature(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := newTestCodec(t, now)
	tok, err := c.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}, PrincipalID: "p-9"}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	c.now = func() time.Time { return now.Add(48 * time.Hour) }
	claims, err := c.ParseUnverified(tok)
	if err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	if claims.PrincipalID != "p-9" {
		t.Fatalf("unexpected id %q", claims.PrincipalID)
	}

	// A different signing key still decodes; this is why the result is never trusted alone.
	cfg := testAuthConfig
	cfg.SigningKey = "another-key-another-key-another-key"
	other, _ := NewCodec(cfg)
	if _, err := other.ParseUnverified(tok); err != nil {
		t.Fatalf("expected decode with foreign key, got %v", err)
	}
}

func TestParseUnverified_Malformed(t *testing.T) {
	c := newTestCodec(t, time.Now())
	for _, tok := range []string{"", "abc", "a.b", "not.a.jwt"} {
		if _, err := c.ParseUnverified(tok); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("%q: expected ErrMalformedToken, got %v", tok, err)
		}
	}
}

func TestParseUnverified_MissingIdentifier(t *testing.T) {
	now := time.Now()
	c := newTestCodec(t, now)
	tok, err := c.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.ParseUnverified(tok); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestClaims_HasClaim(t *testing.T) {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
		PrincipalID:      "p",
		Roles:            jwt.ClaimStrings{"admin_access", "common_user_access"},
	}
	if !c.HasClaim(ClaimRole, "common_user_access") || !c.HasClaim(ClaimID, "p") || !c.HasClaim(ClaimSubject, "u") {
		t.Fatalf("expected claims present")
	}
	if c.HasClaim(ClaimRole, "app_access") || c.HasClaim("scope", "x") {
		t.Fatalf("unexpected claim present")
	}
}
