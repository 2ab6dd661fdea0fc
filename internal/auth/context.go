package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxClaims ctxKey = iota
)

// WithClaims stores verified claims in ctx. Only RequireAccessToken should call it
// with claims from VerifyAndParse.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, ctxClaims, c)
}

func ClaimsFrom(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(ctxClaims).(Claims)
	return c, ok
}

func PrincipalID(ctx context.Context) (string, error) {
	if c, ok := ClaimsFrom(ctx); ok && c.PrincipalID != "" {
		return c.PrincipalID, nil
	}
	return "", errors.New("principal id not in context")
}

func Username(ctx context.Context) (string, error) {
	if c, ok := ClaimsFrom(ctx); ok && c.Subject != "" {
		return c.Subject, nil
	}
	return "", errors.New("username not in context")
}

func Roles(ctx context.Context) []string {
	if c, ok := ClaimsFrom(ctx); ok {
		return []string(c.Roles)
	}
	return nil
}
