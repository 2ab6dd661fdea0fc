package chat

import (
	"context"
	"database/sql"
	"fmt"

	"bondbridge/pkg/utils"
)

// NOTE: This repository assumes the tables from internal/schema exist:
// - conversation_users (user_name UNIQUE)
// - groups
// - user_groups (group membership)
// - messages

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListUsers(ctx context.Context) ([]ConversationUser, error) {
	const q = `
SELECT id, user_name, created_at
FROM conversation_users
ORDER BY user_name
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select conversation users: %w", err)
	}
	defer rows.Close()

	out := []ConversationUser{}
	for rows.Next() {
		var u ConversationUser
		if err := rows.Scan(&u.ID, &u.UserName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateUser(ctx context.Context, u ConversationUser) error {
	const q = `
INSERT INTO conversation_users (id, user_name, created_at)
VALUES ($1, $2, $3)
`
	if _, err := r.db.ExecContext(ctx, q, u.ID, u.UserName, u.CreatedAt); err != nil {
		if utils.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert conversation user: %w", err)
	}
	return nil
}

// DeleteUserByName removes the user; memberships and messages cascade.
func (r *PostgresRepo) DeleteUserByName(ctx context.Context, userName string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversation_users WHERE user_name = $1`, userName)
	if err != nil {
		return fmt.Errorf("delete conversation user: %w", err)
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

func (r *PostgresRepo) GroupsByUser(ctx context.Context, userID string) ([]Group, error) {
	var out []Group
	// One read-only snapshot so members and messages match the group list.
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}, func(ctx context.Context, tx *sql.Tx) error {
		groups, index, err := selectGroups(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			return nil
		}
		if err := selectMembers(ctx, tx, userID, groups, index); err != nil {
			return err
		}
		if err := selectMessages(ctx, tx, userID, groups, index); err != nil {
			return err
		}
		out = groups
		return nil
	})
	return out, err
}

func selectGroups(ctx context.Context, tx *sql.Tx, userID string) ([]Group, map[string]int, error) {
	const q = `
SELECT g.id, g.name, g.created_at
FROM groups g
JOIN user_groups ug ON ug.group_id = g.id
WHERE ug.user_id = $1
ORDER BY g.name, g.id
`
	rows, err := tx.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	index := map[string]int{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan group: %w", err)
		}
		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	return groups, index, rows.Err()
}

func selectMembers(ctx context.Context, tx *sql.Tx, userID string, groups []Group, index map[string]int) error {
	const q = `
SELECT ug.group_id, cu.id, cu.user_name, cu.created_at
FROM user_groups ug
JOIN conversation_users cu ON cu.id = ug.user_id
WHERE ug.group_id IN (SELECT group_id FROM user_groups WHERE user_id = $1)
ORDER BY cu.user_name
`
	rows, err := tx.QueryContext(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("select group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var gid string
		var u ConversationUser
		if err := rows.Scan(&gid, &u.ID, &u.UserName, &u.CreatedAt); err != nil {
			return fmt.Errorf("scan group member: %w", err)
		}
		if i, ok := index[gid]; ok {
			groups[i].Users = append(groups[i].Users, u)
		}
	}
	return rows.Err()
}

func selectMessages(ctx context.Context, tx *sql.Tx, userID string, groups []Group, index map[string]int) error {
	const q = `
SELECT m.id, m.group_id, m.user_id, m.content, m.created_at
FROM messages m
WHERE m.group_id IN (SELECT group_id FROM user_groups WHERE user_id = $1)
ORDER BY m.created_at, m.id
`
	rows, err := tx.QueryContext(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		if i, ok := index[m.GroupID]; ok {
			groups[i].Messages = append(groups[i].Messages, m)
		}
	}
	return rows.Err()
}
