// Package notification exposes the query surface over scheduled
// notifications for owners and operators.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"calremind/internal/model"
)

type notificationRepository interface {
	GetStatusByID(ctx context.Context, id uuid.UUID) (string, error)
	GetByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]model.Notification, error)
	GetAll(ctx context.Context, status string, userID uuid.NullUUID, limit, offset int) ([]model.Notification, error)
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Service answers notification queries, serving status lookups through a
// redis cache in front of the store.
type Service struct {
	repo  notificationRepository
	cache cache
}

// NewService creates a notification query service.
func NewService(repo notificationRepository, cache cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// GetStatusByID returns a notification's status, cache-aside.
func (s *Service) GetStatusByID(ctx context.Context, strategy retry.Strategy, id uuid.UUID) (string, error) {
	status, err := s.cache.GetWithRetry(ctx, strategy, id.String())
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status from cache")
	}

	if err != nil {
		status, err = s.repo.GetStatusByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("get notification status: %w", err)
		}

		if err := s.cache.SetWithRetry(ctx, strategy, id.String(), status); err != nil {
			zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to cache notification status")
		}
	}

	return status, nil
}

// ListForUser returns a user's own notifications, optionally filtered by
// status, paginated.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]model.Notification, error) {
	notifications, err := s.repo.GetByUser(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications for user: %w", err)
	}

	return notifications, nil
}

// ListAll returns notifications across all users for the admin view,
// filterable by status and user, paginated.
func (s *Service) ListAll(ctx context.Context, status string, userID uuid.NullUUID, limit, offset int) ([]model.Notification, error) {
	notifications, err := s.repo.GetAll(ctx, status, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list all notifications: %w", err)
	}

	return notifications, nil
}
