package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const runLockKey = "lock:reconciliation-run"

// Client wraps the Redis connection used for the competitor price cache and
// the reconciliation run lock.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireRunLock takes the cross-process run lock. The engine already
// rejects overlapping runs in-process; this lock extends that guarantee
// across replicas sharing one marketplace account.
func (c *Client) AcquireRunLock(ctx context.Context, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, runLockKey, "1", ttl).Result()
}

// ReleaseRunLock releases the run lock.
func (c *Client) ReleaseRunLock(ctx context.Context) error {
	return c.rdb.Del(ctx, runLockKey).Err()
}
