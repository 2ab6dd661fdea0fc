package faultlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for fault log entries.
// It is append-only: there are no update or delete methods.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	// Since returns entries created at or after t, newest first.
	Since(ctx context.Context, t time.Time) ([]Entry, error)
}

// LatestWindow is how far back Latest looks.
const LatestWindow = 24 * time.Hour

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEntry = errors.New("faultlog: invalid entry")

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("faultlog: repository not configured")
	}
	if e.Message == "" {
		return ErrInvalidEntry
	}
	if e.Level == "" {
		e.Level = LevelError
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// RecordPanic stores a recovered panic from an HTTP request.
func (s *Service) RecordPanic(ctx context.Context, requestID, value, stack string) error {
	return s.Append(ctx, Entry{
		Level:            LevelError,
		Message:          "unhandled panic while serving request",
		ExceptionMessage: value,
		StackTrace:       stack,
		RequestID:        requestID,
	})
}

// Latest returns the entries of the last LatestWindow.
func (s *Service) Latest(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.Since(ctx, s.clock().UTC().Add(-LatestWindow))
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
