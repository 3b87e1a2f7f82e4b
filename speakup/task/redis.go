package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "speakup:task:"
	maxUpdateRetries = 5
)

var _ Registry = (*RedisRegistry)(nil)

// RedisRegistry stores each task as a JSON value whose TTL is the retention
// window, so expired tasks disappear without sweeping. Tasks survive restarts
// and can be shared by several server processes.
type RedisRegistry struct {
	client    redis.UniversalClient
	retention time.Duration
	now       func() time.Time
}

func NewRedisRegistry(client redis.UniversalClient, retention time.Duration) *RedisRegistry {
	return &RedisRegistry{
		client:    client,
		retention: retention,
		now:       time.Now,
	}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisRegistry) Create(ctx context.Context, topic string, exchanges int) (Task, error) {
	now := r.now()
	t := Task{
		ID:        uuid.NewString(),
		Topic:     topic,
		Exchanges: exchanges,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(t)
	if err != nil {
		return Task{}, err
	}
	if err := r.client.Set(ctx, redisKey(t.ID), data, r.retention).Err(); err != nil {
		return Task{}, fmt.Errorf("failed to store task: %w", err)
	}
	return t, nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (Task, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("failed to load task: %w", err)
	}

	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("failed to decode task: %w", err)
	}
	return t, nil
}

// Update is an optimistic WATCH/MULTI transaction, retried when another
// writer touched the key in between.
func (r *RedisRegistry) Update(ctx context.Context, id string, status Status, opts ...UpdateOption) error {
	key := redisKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}

		var t Task
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to decode task: %w", err)
		}
		if err := apply(&t, status, r.now(), opts); err != nil {
			return err
		}
		data, err = json.Marshal(t)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.retention)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to update task %s: too much contention", id)
}

// Sweep is a no-op: keys expire on their own.
func (r *RedisRegistry) Sweep(context.Context) (int, error) {
	return 0, nil
}
