package auth

import (
	"errors"
	"fmt"
	"time"

	"bondbridge/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers every verification failure: signature, algorithm,
	// issuer, audience, expiry or missing identifier.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedToken is returned by ParseUnverified when the token cannot be decoded.
	ErrMalformedToken = errors.New("malformed token")
)

// Codec signs and parses compact HS256 tokens for one issuer/audience pair.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewCodec(cfg config.AuthConfig) (*Codec, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("JWT_SIGNING_KEY is required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("JWT_ISSUER and JWT_AUDIENCE are required")
	}
	return &Codec{
		secret:   []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}, nil
}

/* ===================== SIGN ===================== */

// Sign stamps issuer, audience and expiry onto claims and signs them.
// No nonce is added: identical claims signed within the same second yield identical tokens.
func (c *Codec) Sign(claims Claims, expiresAt time.Time) (string, error) {
	now := c.now()
	claims.Issuer = c.issuer
	claims.Audience = jwt.ClaimStrings{c.audience}
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.NotBefore == nil {
		claims.NotBefore = claims.IssuedAt
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

/* ===================== VERIFY ===================== */

// VerifyAndParse validates signature, issuer, audience and expiry with zero clock skew.
func (c *Codec) VerifyAndParse(tokenString string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(c.now),
	)

	tok, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.PrincipalID == "" {
		return Claims{}, fmt.Errorf("%w: id claim missing", ErrInvalidToken)
	}
	return claims, nil
}

/* ===================== UNVERIFIED ===================== */

// ParseUnverified decodes the payload without checking signature or expiry.
//
// The result identifies who the token claims to be, nothing more. It must never
// be used as an authentication decision on its own; the refresh flow authorizes
// only through the stored refresh token match.
func (c *Codec) ParseUnverified(tokenString string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.PrincipalID == "" {
		return Claims{}, fmt.Errorf("%w: id claim missing", ErrMalformedToken)
	}
	return claims, nil
}
