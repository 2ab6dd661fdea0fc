package faultlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO fault_logs (
  id, level, message, exception_message, stack_trace, request_id, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Level,
		e.Message,
		e.ExceptionMessage,
		e.StackTrace,
		e.RequestID,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fault log: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Since(ctx context.Context, t time.Time) ([]Entry, error) {
	const q = `
SELECT id, level, message, exception_message, stack_trace, request_id, created_at
FROM fault_logs
WHERE created_at >= $1
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, t)
	if err != nil {
		return nil, fmt.Errorf("select fault logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.Level,
			&e.Message,
			&e.ExceptionMessage,
			&e.StackTrace,
			&e.RequestID,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan fault log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
