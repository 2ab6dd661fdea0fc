// Package accounts is the user and role management surface: principals, role
// catalogue, role assignments and the matching conversation users.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bondbridge/internal/apperr"
	"bondbridge/internal/chat"
	"bondbridge/internal/directory"
	"bondbridge/internal/policy"
	"bondbridge/internal/tokenstore"
	"bondbridge/pkg/logger"
)

type Service struct {
	directory directory.Directory
	chat      *chat.Service
	tokens    tokenstore.Store
}

func NewService(dir directory.Directory, chatSvc *chat.Service, tokens tokenstore.Store) (*Service, error) {
	if dir == nil || chatSvc == nil || tokens == nil {
		return nil, errors.New("accounts: directory, chat service and token store are required")
	}
	return &Service{directory: dir, chat: chatSvc, tokens: tokens}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]chat.ConversationUser, error) {
	users, err := s.chat.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// AddUser creates a principal holding the common user role plus its conversation
// user. If either follow-up step fails the principal is removed again.
func (s *Service) AddUser(ctx context.Context, email, password string) (directory.Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return directory.Principal{}, apperr.Validation("email and password are required")
	}

	p, err := s.directory.CreatePrincipal(ctx, email, password)
	if err != nil {
		return directory.Principal{}, translate(err, "user", "user already exists")
	}

	if err := s.ensureRole(ctx, policy.RoleCommonUser); err != nil {
		s.rollbackPrincipal(ctx, p.ID)
		return directory.Principal{}, apperr.Internal(fmt.Errorf("ensure default role: %w", err))
	}
	if err := s.directory.AddRole(ctx, p.ID, policy.RoleCommonUser); err != nil {
		s.rollbackPrincipal(ctx, p.ID)
		return directory.Principal{}, apperr.Internal(fmt.Errorf("assign default role: %w", err))
	}
	if _, err := s.chat.CreateUser(ctx, p.Email); err != nil {
		s.rollbackPrincipal(ctx, p.ID)
		if errors.Is(err, chat.ErrConflict) {
			return directory.Principal{}, apperr.Conflict("conversation user already exists")
		}
		return directory.Principal{}, apperr.Internal(fmt.Errorf("create conversation user: %w", err))
	}

	logger.From(ctx).Info("user created", "principal_id", p.ID)
	return p, nil
}

// EnsureAdmin seeds an administrator on a fresh deployment. It creates the user
// when missing and grants the admin role; running it again changes nothing.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	p, err := s.directory.FindPrincipalByEmail(ctx, strings.TrimSpace(email))
	switch {
	case errors.Is(err, directory.ErrNotFound):
		p, err = s.AddUser(ctx, email, password)
		if err != nil {
			return err
		}
	case err != nil:
		return apperr.Internal(fmt.Errorf("find admin: %w", err))
	}

	if err := s.ensureRole(ctx, policy.RoleAdmin); err != nil {
		return apperr.Internal(fmt.Errorf("ensure admin role: %w", err))
	}
	if err := s.directory.AddRole(ctx, p.ID, policy.RoleAdmin); err != nil && !errors.Is(err, directory.ErrConflict) {
		return apperr.Internal(fmt.Errorf("grant admin role: %w", err))
	}
	logger.From(ctx).Info("admin ensured", "principal_id", p.ID)
	return nil
}

// ensureRole recreates a catalogue role an admin may have deleted.
func (s *Service) ensureRole(ctx context.Context, name string) error {
	ok, err := s.directory.RoleExists(ctx, name)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := s.directory.CreateRole(ctx, name); err != nil && !errors.Is(err, directory.ErrConflict) {
		return err
	}
	logger.From(ctx).Info("default role recreated", "role", name)
	return nil
}

func (s *Service) rollbackPrincipal(ctx context.Context, id string) {
	if err := s.directory.DeletePrincipal(ctx, id); err != nil {
		logger.From(ctx).Error("rollback of created user failed", "principal_id", id, "err", err)
	}
}

// DeleteUser removes the principal, its refresh token and its conversation user.
func (s *Service) DeleteUser(ctx context.Context, principalID string) error {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return apperr.Validation("user id is required")
	}
	p, err := s.directory.FindPrincipalByID(ctx, principalID)
	if err != nil {
		return translate(err, "user", "")
	}
	if err := s.directory.DeletePrincipal(ctx, p.ID); err != nil {
		return translate(err, "user", "")
	}
	if err := s.tokens.Clear(ctx, p.ID); err != nil {
		return apperr.Internal(fmt.Errorf("clear refresh token: %w", err))
	}
	if err := s.chat.DeleteUser(ctx, p.Email); err != nil && !errors.Is(err, chat.ErrNotFound) {
		return apperr.Internal(fmt.Errorf("delete conversation user: %w", err))
	}
	logger.From(ctx).Info("user deleted", "principal_id", p.ID)
	return nil
}

func (s *Service) AddRole(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation("role name is required")
	}
	if err := s.directory.CreateRole(ctx, name); err != nil {
		return translate(err, "role", "role already exists")
	}
	return nil
}

func (s *Service) DeleteRole(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation("role name is required")
	}
	if err := s.directory.DeleteRole(ctx, name); err != nil {
		return translate(err, "role", "")
	}
	return nil
}

func (s *Service) AddRoleToUser(ctx context.Context, principalID, role string) error {
	if strings.TrimSpace(principalID) == "" || strings.TrimSpace(role) == "" {
		return apperr.Validation("user id and role are required")
	}
	if err := s.directory.AddRole(ctx, principalID, role); err != nil {
		return translate(err, "user or role", "user already has role")
	}
	return nil
}

func (s *Service) RemoveRoleFromUser(ctx context.Context, principalID, role string) error {
	if strings.TrimSpace(principalID) == "" || strings.TrimSpace(role) == "" {
		return apperr.Validation("user id and role are required")
	}
	if err := s.directory.RemoveRole(ctx, principalID, role); err != nil {
		return translate(err, "role assignment", "")
	}
	return nil
}

// translate maps directory sentinels onto apperr kinds.
func translate(err error, subject, conflictMsg string) error {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return apperr.NotFound(subject + " not found")
	case errors.Is(err, directory.ErrConflict):
		return apperr.Conflict(conflictMsg)
	case errors.Is(err, directory.ErrInvalidArgument):
		return apperr.Validation("invalid " + subject)
	default:
		return apperr.Internal(err)
	}
}
