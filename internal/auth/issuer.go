package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"bondbridge/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// LifetimeClass selects how long an access token lives.
type LifetimeClass int

const (
	LifetimeSession LifetimeClass = iota
	LifetimeAppCredential
)

func (l LifetimeClass) String() string {
	if l == LifetimeAppCredential {
		return "app_credential"
	}
	return "session"
}

// refreshTokenBytes is 256 bits of entropy.
const refreshTokenBytes = 32

type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
}

// Issuer builds access tokens and opaque refresh tokens.
type Issuer struct {
	codec      *Codec
	sessionTTL time.Duration
	appTTL     time.Duration
	clock      func() time.Time
	random     io.Reader
}

func NewIssuer(codec *Codec, cfg config.AuthConfig) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = config.DefaultSessionTTL
	}
	appTTL := cfg.AppTTL
	if appTTL <= 0 {
		appTTL = config.DefaultAppTTL
	}
	return &Issuer{
		codec:      codec,
		sessionTTL: sessionTTL,
		appTTL:     appTTL,
		clock:      time.Now,
		random:     rand.Reader,
	}, nil
}

// IssueAccessToken signs a token for the principal. Roles are emitted in the
// order given; callers pass a de-duplicated set.
func (i *Issuer) IssueAccessToken(principalID, username string, roles []string, class LifetimeClass) (AccessToken, error) {
	if principalID == "" || username == "" {
		return AccessToken{}, errors.New("principal id and username are required")
	}
	now := i.clock()
	ttl := i.sessionTTL
	if class == LifetimeAppCredential {
		ttl = i.appTTL
	}
	exp := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(now),
		},
		PrincipalID: principalID,
	}
	if len(roles) > 0 {
		claims.Roles = append(jwt.ClaimStrings(nil), roles...)
	}

	tok, err := i.codec.Sign(claims, exp)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: tok, ExpiresAt: exp}, nil
}

// IssueRefreshToken returns a fresh random value. It carries no principal data;
// binding happens only through the refresh token store.
func (i *Issuer) IssueRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(i.random, b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
