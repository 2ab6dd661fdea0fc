package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) ListUsers(ctx context.Context) ([]ConversationUser, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser registers the conversation user for a newly created principal.
func (s *Service) CreateUser(ctx context.Context, userName string) (ConversationUser, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return ConversationUser{}, ErrInvalidArgument
	}
	u := ConversationUser{ID: uuid.NewString(), UserName: userName, CreatedAt: s.clock().UTC()}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return ConversationUser{}, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, userName string) error {
	if strings.TrimSpace(userName) == "" {
		return ErrInvalidArgument
	}
	return s.repo.DeleteUserByName(ctx, userName)
}

func (s *Service) GroupsByUser(ctx context.Context, userID string) ([]Group, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrInvalidArgument
	}
	groups, err := s.repo.GroupsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []Group{}
	}
	return groups, nil
}
