package chat

import (
	"context"
	"errors"
	"time"
)

// ConversationUser is the chat-side identity of a principal. UserName equals the
// principal's email.
type ConversationUser struct {
	ID        string    `json:"id" db:"id"`
	UserName  string    `json:"userName" db:"user_name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Message struct {
	ID        string    `json:"id" db:"id"`
	GroupID   string    `json:"groupId" db:"group_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}

// Group carries its members and its messages, oldest first.
type Group struct {
	ID        string             `json:"id" db:"id"`
	Name      string             `json:"name" db:"name"`
	CreatedAt time.Time          `json:"createdAt" db:"created_at"`
	Users     []ConversationUser `json:"users"`
	Messages  []Message          `json:"messages"`
}

var (
	ErrNotFound        = errors.New("chat: not found")
	ErrConflict        = errors.New("chat: already exists")
	ErrInvalidArgument = errors.New("chat: invalid argument")
)

type Repository interface {
	ListUsers(ctx context.Context) ([]ConversationUser, error)
	CreateUser(ctx context.Context, u ConversationUser) error
	DeleteUserByName(ctx context.Context, userName string) error
	// GroupsByUser returns every group userID belongs to, ordered by name.
	GroupsByUser(ctx context.Context, userID string) ([]Group, error)
}
