// Package session implements the sign-in, refresh and sign-out flows.
//
// Store writes happen only after both tokens are built. A failed step leaves the
// stored refresh token untouched.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"bondbridge/internal/apperr"
	"bondbridge/internal/auth"
	"bondbridge/internal/directory"
	"bondbridge/internal/policy"
	"bondbridge/internal/tokenstore"
	"bondbridge/pkg/logger"
)

// Messages returned to clients. Credential failures never say which part was wrong.
const (
	msgInvalidCredentials  = "invalid email or password"
	msgAppAccessRequired   = "app credentials require the app_access role"
	msgInvalidAccessToken  = "invalid access token"
	msgInvalidRefreshToken = "invalid refresh token"
	msgUserNotFound        = "user not found"
	msgNoRoles             = "no roles found for user"
)

type Service struct {
	directory directory.Directory
	issuer    *auth.Issuer
	codec     *auth.Codec
	store     tokenstore.Store
}

func NewService(dir directory.Directory, issuer *auth.Issuer, codec *auth.Codec, store tokenstore.Store) (*Service, error) {
	if dir == nil || issuer == nil || codec == nil || store == nil {
		return nil, errors.New("session: directory, issuer, codec and store are required")
	}
	return &Service{directory: dir, issuer: issuer, codec: codec, store: store}, nil
}

type SignInRequest struct {
	Email    string
	Password string
	IsApp    bool
}

// SignIn checks credentials and issues a new token pair, replacing any stored refresh token.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (auth.TokenPair, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return auth.TokenPair{}, apperr.Validation("email and password are required")
	}

	p, err := s.directory.FindPrincipalByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return auth.TokenPair{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return auth.TokenPair{}, apperr.Internal(fmt.Errorf("find principal: %w", err))
	}
	ok, err := s.directory.ValidateCredentials(ctx, p.ID, req.Password)
	if err != nil {
		return auth.TokenPair{}, apperr.Internal(fmt.Errorf("validate credentials: %w", err))
	}
	if !ok {
		return auth.TokenPair{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	roles, err := s.directory.GetRoles(ctx, p.ID)
	if err != nil {
		return auth.TokenPair{}, apperr.Internal(fmt.Errorf("get roles: %w", err))
	}

	class := auth.LifetimeSession
	if req.IsApp {
		if !contains(roles, policy.RoleApp) {
			return auth.TokenPair{}, apperr.Unauthorized(msgAppAccessRequired)
		}
		class = auth.LifetimeAppCredential
	}

	pair, err := s.issuePair(ctx, p, roles, class)
	if err != nil {
		return auth.TokenPair{}, err
	}
	logger.From(ctx).Info("signed in", "principal_id", p.ID, "lifetime", class.String())
	return pair, nil
}

// Refresh rotates the pair. The access token may be expired; it only names the
// principal. Authorization rests entirely on the stored refresh token match.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (auth.TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return auth.TokenPair{}, apperr.Validation("access token and refresh token are required")
	}

	claims, err := s.codec.ParseUnverified(accessToken)
	if err != nil {
		return auth.TokenPair{}, apperr.Wrap(apperr.KindUnauthorized, msgInvalidAccessToken, err)
	}

	p, err := s.directory.FindPrincipalByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return auth.TokenPair{}, apperr.NotFound(msgUserNotFound)
		}
		return auth.TokenPair{}, apperr.Internal(fmt.Errorf("find principal: %w", err))
	}

	roles, err := s.directory.GetRoles(ctx, p.ID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return auth.TokenPair{}, apperr.NotFound(msgNoRoles)
		}
		return auth.TokenPair{}, apperr.Internal(fmt.Errorf("get roles: %w", err))
	}
	if len(roles) == 0 {
		return auth.TokenPair{}, apperr.NotFound(msgNoRoles)
	}

	stored, found, err := s.store.Get(ctx, p.ID)
	if err != nil {
		return auth.TokenPair{}, apperr.Internal(fmt.Errorf("load refresh token: %w", err))
	}
	if !found || stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		logger.From(ctx).Warn("refresh token rejected", "principal_id", p.ID, "found", found)
		return auth.TokenPair{}, apperr.Unauthorized(msgInvalidRefreshToken)
	}

	// Refreshed tokens are always session tokens, like the ones a normal sign-in yields.
	return s.issuePair(ctx, p, roles, auth.LifetimeSession)
}

// SignOut clears the refresh token of principalID. Callers may sign themselves
// out; holders of the admin role may sign out anyone.
func (s *Service) SignOut(ctx context.Context, caller auth.Claims, principalID string) error {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return apperr.Validation("user id is required")
	}
	if caller.PrincipalID != principalID && !caller.HasClaim(auth.ClaimRole, policy.RoleAdmin) {
		return apperr.Forbidden("cannot sign out another user")
	}
	if err := s.store.Clear(ctx, principalID); err != nil {
		return apperr.Internal(fmt.Errorf("clear refresh token: %w", err))
	}
	logger.From(ctx).Info("signed out", "principal_id", principalID, "by", caller.PrincipalID)
	return nil
}

func (s *Service) issuePair(ctx context.Context, p directory.Principal, roles []string, class auth.LifetimeClass) (auth.TokenPair, error) {
	at, err := s.issuer.IssueAccessToken(p.ID, p.Username, roles, class)
	if err != nil {
		return auth.TokenPair{}, apperr.Internal(err)
	}
	rt, err := s.issuer.IssueRefreshToken()
	if err != nil {
		return auth.TokenPair{}, apperr.Internal(err)
	}
	if err := s.store.Put(ctx, p.ID, rt); err != nil {
		return auth.TokenPair{}, apperr.Internal(fmt.Errorf("store refresh token: %w", err))
	}
	return auth.TokenPair{AccessToken: at.Token, RefreshToken: rt}, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
