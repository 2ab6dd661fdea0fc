// Package schema owns the Postgres DDL used by every repository in the API.
package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"bondbridge/pkg/utils"
)

//go:embed schema.sql
var ddl string

// DDL returns the embedded schema script.
func DDL() string { return ddl }

// Apply creates missing tables, indexes and the built-in roles in one transaction.
// It is safe to call repeatedly.
func Apply(ctx context.Context, db *sql.DB) error {
	return utils.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}
