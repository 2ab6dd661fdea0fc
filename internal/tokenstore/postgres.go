package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore keeps refresh tokens in the refresh_tokens table:
//
//	principal_id TEXT PRIMARY KEY, token TEXT NOT NULL,
//	expires_at TIMESTAMPTZ NULL, updated_at TIMESTAMPTZ NOT NULL
type PostgresStore struct {
	db    *sql.DB
	ttl   time.Duration
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl, clock: time.Now}
}

func (s *PostgresStore) Put(ctx context.Context, principalID, token string) error {
	if principalID == "" || token == "" {
		return ErrInvalidArgument
	}
	now := s.clock().UTC()
	var expiresAt sql.NullTime
	if s.ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(s.ttl), Valid: true}
	}

	const q = `
INSERT INTO refresh_tokens (principal_id, token, expires_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (principal_id)
DO UPDATE SET token = EXCLUDED.token,
              expires_at = EXCLUDED.expires_at,
              updated_at = EXCLUDED.updated_at
`
	if _, err := s.db.ExecContext(ctx, q, principalID, token, expiresAt, now); err != nil {
		return fmt.Errorf("upsert refresh token: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, principalID string) (string, bool, error) {
	const q = `
SELECT token, expires_at
FROM refresh_tokens
WHERE principal_id = $1
`
	var (
		token     string
		expiresAt sql.NullTime
	)
	if err := s.db.QueryRowContext(ctx, q, principalID).Scan(&token, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select refresh token: %w", err)
	}
	if expiresAt.Valid && !s.clock().Before(expiresAt.Time) {
		return "", false, nil
	}
	return token, true, nil
}

func (s *PostgresStore) Clear(ctx context.Context, principalID string) error {
	const q = `DELETE FROM refresh_tokens WHERE principal_id = $1`
	if _, err := s.db.ExecContext(ctx, q, principalID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
