package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"barbeapp/internal/domain"
	"barbeapp/internal/models"

	"github.com/rs/zerolog"
)

// FailoverNotificationRepository writes to the primary store and switches to the fallback
// while the primary is failing. Domain errors from the primary do not trigger failover.
type FailoverNotificationRepository struct {
	primary  domain.NotificationStore
	fallback domain.NotificationStore
	logger   *zerolog.Logger
	recheck  time.Duration

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverNotificationRepository(primary, fallback domain.NotificationStore, logger *zerolog.Logger) *FailoverNotificationRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverNotificationRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		recheck:  models.FailoverRecheckInterval * time.Second,
	}
}

// usePrimary reports whether the primary should be tried for this call.
func (r *FailoverNotificationRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > r.recheck {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverNotificationRepository) observe(err error, op string) bool {
	if err == nil || isDomainError(err) {
		if r.isDown.Swap(false) {
			r.logger.Info().Str("op", op).Msg("primary notification store recovered")
		}
		return true
	}
	r.logger.Error().Err(err).Str("op", op).Msg("primary notification store failed, falling back to memory")
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
	r.isDown.Store(true)
	return false
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrAuthorization) ||
		errors.Is(err, domain.ErrDomain)
}

func (r *FailoverNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if r.usePrimary() {
		err := r.primary.CreateNotification(ctx, n)
		if r.observe(err, "create") {
			return err
		}
	}
	return r.fallback.CreateNotification(ctx, n)
}

func (r *FailoverNotificationRepository) ListNotificationsByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	if r.usePrimary() {
		list, err := r.primary.ListNotificationsByUser(ctx, userID, limit)
		if r.observe(err, "list") {
			return list, err
		}
	}
	return r.fallback.ListNotificationsByUser(ctx, userID, limit)
}

func (r *FailoverNotificationRepository) MarkNotificationRead(ctx context.Context, id string, userID int64) (*models.Notification, error) {
	if r.usePrimary() {
		n, err := r.primary.MarkNotificationRead(ctx, id, userID)
		if !r.observe(err, "mark_read") {
			return r.fallback.MarkNotificationRead(ctx, id, userID)
		}
		if !errors.Is(err, domain.ErrNotificationNotFound) {
			return n, err
		}
	}
	// записи, сделанные во время сбоя, лежат только в памяти
	return r.fallback.MarkNotificationRead(ctx, id, userID)
}
