// Package tokenstore keeps the single active refresh token of each principal.
//
// Put is one atomic upsert in every implementation: a new value replaces the old
// one without a remove-then-insert window. Concurrent refreshes of the same
// principal can still both succeed; the last Put wins and the other pair stops
// working on its next use.
package tokenstore

import (
	"context"
	"errors"
)

var ErrInvalidArgument = errors.New("tokenstore: principal id and token are required")

type Store interface {
	// Put replaces any existing value for principalID.
	Put(ctx context.Context, principalID, token string) error
	// Get returns the stored value. found is false when nothing (or only an expired value) is stored.
	Get(ctx context.Context, principalID string) (token string, found bool, err error)
	// Clear removes the value; clearing an absent value is not an error.
	Clear(ctx context.Context, principalID string) error
}
