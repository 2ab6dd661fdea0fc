package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bondbridge/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// NOTE: This repository assumes the tables from internal/schema exist:
// - users (email UNIQUE)
// - roles
// - user_roles (PRIMARY KEY (user_id, role_name), ON DELETE CASCADE on both sides)

// PostgresDirectory implements Directory on database/sql (pgx stdlib driver).
type PostgresDirectory struct {
	db    *sql.DB
	cost  int
	clock func() time.Time
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db, cost: bcrypt.DefaultCost, clock: time.Now}
}

func (d *PostgresDirectory) FindPrincipalByEmail(ctx context.Context, email string) (Principal, error) {
	const q = `
SELECT id, username, email, created_at
FROM users
WHERE lower(email) = lower($1)
`
	return scanPrincipal(d.db.QueryRowContext(ctx, q, strings.TrimSpace(email)))
}

func (d *PostgresDirectory) FindPrincipalByID(ctx context.Context, id string) (Principal, error) {
	if !isPrincipalID(id) {
		return Principal{}, ErrNotFound
	}
	const q = `
SELECT id, username, email, created_at
FROM users
WHERE id = $1
`
	return scanPrincipal(d.db.QueryRowContext(ctx, q, id))
}

func scanPrincipal(row *sql.Row) (Principal, error) {
	var p Principal
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, fmt.Errorf("scan principal: %w", err)
	}
	return p, nil
}

func (d *PostgresDirectory) ValidateCredentials(ctx context.Context, principalID, password string) (bool, error) {
	const q = `SELECT password_hash FROM users WHERE id = $1`
	var hash string
	if err := d.db.QueryRowContext(ctx, q, principalID).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("select password hash: %w", err)
	}
	return comparePassword(hash, password)
}

func (d *PostgresDirectory) GetRoles(ctx context.Context, principalID string) ([]string, error) {
	const q = `
SELECT role_name
FROM user_roles
WHERE user_id = $1
ORDER BY role_name
`
	rows, err := d.db.QueryContext(ctx, q, principalID)
	if err != nil {
		return nil, fmt.Errorf("select roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (d *PostgresDirectory) AddRole(ctx context.Context, principalID, role string) error {
	if !isPrincipalID(principalID) {
		return ErrNotFound
	}
	return utils.WithTx(ctx, d.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := requireRow(ctx, tx, `SELECT 1 FROM users WHERE id = $1`, principalID); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, `SELECT 1 FROM roles WHERE name = $1`, role); err != nil {
			return err
		}
		const q = `INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, q, principalID, role); err != nil {
			if utils.IsUniqueViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("insert user role: %w", err)
		}
		return nil
	})
}

func (d *PostgresDirectory) RemoveRole(ctx context.Context, principalID, role string) error {
	if !isPrincipalID(principalID) {
		return ErrNotFound
	}
	const q = `DELETE FROM user_roles WHERE user_id = $1 AND role_name = $2`
	return execAffectingOne(ctx, d.db, q, principalID, role)
}

func (d *PostgresDirectory) CreatePrincipal(ctx context.Context, email, password string) (Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Principal{}, ErrInvalidArgument
	}
	hash, err := hashPassword(password, d.cost)
	if err != nil {
		return Principal{}, err
	}

	p := Principal{ID: uuid.NewString(), Username: email, Email: email, CreatedAt: d.clock().UTC()}
	const q = `
INSERT INTO users (id, username, email, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := d.db.ExecContext(ctx, q, p.ID, p.Username, p.Email, hash, p.CreatedAt); err != nil {
		if utils.IsUniqueViolation(err) {
			return Principal{}, ErrConflict
		}
		return Principal{}, fmt.Errorf("insert user: %w", err)
	}
	return p, nil
}

func (d *PostgresDirectory) DeletePrincipal(ctx context.Context, id string) error {
	if !isPrincipalID(id) {
		return ErrNotFound
	}
	return utils.WithTx(ctx, d.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete user roles: %w", err)
		}
		return execAffectingOne(ctx, tx, `DELETE FROM users WHERE id = $1`, id)
	})
}

func (d *PostgresDirectory) CreateRole(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidArgument
	}
	if _, err := d.db.ExecContext(ctx, `INSERT INTO roles (name) VALUES ($1)`, name); err != nil {
		if utils.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (d *PostgresDirectory) DeleteRole(ctx context.Context, name string) error {
	return utils.WithTx(ctx, d.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE role_name = $1`, name); err != nil {
			return fmt.Errorf("delete role assignments: %w", err)
		}
		return execAffectingOne(ctx, tx, `DELETE FROM roles WHERE name = $1`, name)
	})
}

func (d *PostgresDirectory) RoleExists(ctx context.Context, name string) (bool, error) {
	err := requireRow(ctx, d.db, `SELECT 1 FROM roles WHERE name = $1`, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// isPrincipalID reports whether id can match the uuid users.id column.
func isPrincipalID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func requireRow(ctx context.Context, q utils.Querier, query string, args ...any) error {
	var one int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func execAffectingOne(ctx context.Context, q utils.Querier, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
