package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"barbeapp/internal/config"
	"barbeapp/internal/domain"
	"barbeapp/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	notificationKeyPrefix     = "notification:"
	userNotificationKeyPrefix = "notifications:user:"
)

// RedisNotificationRepository keeps each notification as JSON and indexes them per user
// in a sorted set scored by creation time.
type RedisNotificationRepository struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisNotificationRepository(client *redis.Client) *RedisNotificationRepository {
	return &RedisNotificationRepository{client: client}
}

func notificationKey(id string) string {
	return notificationKeyPrefix + id
}

func userNotificationsKey(userID int64) string {
	return userNotificationKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	now := time.Now().UTC()
	stored := *n
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, notificationKey(stored.ID), data, 0)
	pipe.ZAdd(ctx, userNotificationsKey(stored.User), redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: stored.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store notification in redis: %w", err)
	}

	*n = stored
	return nil
}

// ListNotificationsByUser returns the newest notifications first.
func (r *RedisNotificationRepository) ListNotificationsByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if limit <= 0 {
		return []*models.Notification{}, nil
	}

	ids, err := r.client.ZRevRange(ctx, userNotificationsKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list notification ids: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Notification{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = notificationKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}

	out := make([]*models.Notification, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// индекс пережил документ
			continue
		}
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
		}
		out = append(out, &n)
	}
	return out, nil
}

func (r *RedisNotificationRepository) MarkNotificationRead(ctx context.Context, id string, userID int64) (*models.Notification, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	key := notificationKey(id)
	var updated models.Notification

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotificationNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get notification: %w", err)
		}

		if err := json.Unmarshal([]byte(raw), &updated); err != nil {
			return fmt.Errorf("failed to unmarshal notification: %w", err)
		}
		if updated.User != userID {
			return domain.ErrNotificationNotFound
		}

		updated.Read = true
		updated.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(&updated)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
