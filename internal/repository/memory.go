package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"barbeapp/internal/domain"
	"barbeapp/internal/models"

	"github.com/google/uuid"
)

type MemoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*models.Notification
	byUser        map[int64][]string
}

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		notifications: make(map[string]*models.Notification),
		byUser:        make(map[int64][]string),
	}
}

func (r *MemoryNotificationRepository) CreateNotification(_ context.Context, n *models.Notification) error {
	now := time.Now().UTC()
	n.ID = uuid.NewString()
	n.CreatedAt = now
	n.UpdatedAt = now

	stored := *n
	r.mu.Lock()
	r.notifications[stored.ID] = &stored
	r.byUser[stored.User] = append(r.byUser[stored.User], stored.ID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryNotificationRepository) ListNotificationsByUser(_ context.Context, userID int64, limit int) ([]*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	out := make([]*models.Notification, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		n := *r.notifications[ids[i]]
		out = append(out, &n)
	}
	// newest first, later inserts win ties
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryNotificationRepository) MarkNotificationRead(_ context.Context, id string, userID int64) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.User != userID {
		return nil, domain.ErrNotificationNotFound
	}
	n.Read = true
	n.UpdatedAt = time.Now().UTC()
	out := *n
	return &out, nil
}
