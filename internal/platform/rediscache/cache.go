// Package rediscache provides a Redis-backed cache for task progress
// snapshots. The cache is a read accelerator only; the database stays
// the source of truth and every entry expires on its own.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vintrack/vintrack/internal/domain"
)

// ErrCacheMiss is returned by Get when no snapshot is cached for the task.
var ErrCacheMiss = errors.New("task progress not in cache")

// Cache stores task progress snapshots in Redis as JSON with a TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Cache around the given Redis client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func progressKey(taskID uuid.UUID) string {
	return "task:progress:" + taskID.String()
}

// Set stores a snapshot of the task, replacing any previous one.
func (c *Cache) Set(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := c.client.Set(ctx, progressKey(task.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache task progress: %w", err)
	}
	return nil
}

// Get retrieves the cached snapshot for a task.
// Returns ErrCacheMiss when no entry exists or it has expired.
func (c *Cache) Get(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	data, err := c.client.Get(ctx, progressKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read task progress from cache: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached task: %w", err)
	}
	return &task, nil
}

// Delete removes the cached snapshot for a task, if any.
func (c *Cache) Delete(ctx context.Context, taskID uuid.UUID) error {
	if err := c.client.Del(ctx, progressKey(taskID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached task progress: %w", err)
	}
	return nil
}
