package service

import (
	"context"
	"errors"

	"barbeapp/internal/domain"
	"barbeapp/internal/models"

	"github.com/rs/zerolog"
)

type NotificationService struct {
	store  domain.NotificationStore
	users  domain.UserService
	logger *zerolog.Logger
}

func NewNotificationService(store domain.NotificationStore, users domain.UserService, logger *zerolog.Logger) *NotificationService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NotificationService{
		store:  store,
		users:  users,
		logger: logger,
	}
}

// Notify stores a new unread notification for the user and returns its id.
func (s *NotificationService) Notify(ctx context.Context, userID int64, content string) (string, error) {
	n := &models.Notification{User: userID, Content: content}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to store notification")
		return "", err
	}
	return n.ID, nil
}

func (s *NotificationService) List(ctx context.Context, actorID int64) ([]*models.Notification, error) {
	ok, err := s.users.IsProvider(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrProviderOnly
	}
	return s.store.ListNotificationsByUser(ctx, actorID, models.NotificationsLimit)
}

func (s *NotificationService) MarkRead(ctx context.Context, actorID int64, id string) (*models.Notification, error) {
	if id == "" {
		return nil, domain.ErrNotificationNotFound
	}
	n, err := s.store.MarkNotificationRead(ctx, id, actorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error().Err(err).Str("notification_id", id).Int64("user_id", actorID).Msg("failed to mark notification read")
	}
	return n, err
}
