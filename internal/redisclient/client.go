package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

// SetItemQuantity caches an item's current quantity
func (c *Client) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	return c.rdb.Set(ctx, fmt.Sprintf("stock:%d", itemID), quantity, 0).Err()
}

// GetItemQuantity reads a cached quantity. The second return is false
// on a cache miss.
func (c *Client) GetItemQuantity(ctx context.Context, itemID int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("stock:%d", itemID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	qty, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached quantity for item %d: %w", itemID, err)
	}
	return qty, true, nil
}

// InvalidateItem drops an item from the quantity cache
func (c *Client) InvalidateItem(ctx context.Context, itemID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("stock:%d", itemID)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL. Returns false
// when the key was already present, i.e. a duplicate request.
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s", key), "1", ttl).Result()
}

// ClearIdempotencyKey removes an idempotency key, letting a failed
// request be retried with the same key
func (c *Client) ClearIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("idempotency:%s", key)).Err()
}

// AcquireRevertLock takes a short-lived lock on a transaction id so
// two concurrent revert requests cannot both pass the precondition
// check outside the database
func (c *Client) AcquireRevertLock(ctx context.Context, transactionID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:revert:%d", transactionID), "1", ttl).Result()
}

// ReleaseRevertLock releases a revert lock
func (c *Client) ReleaseRevertLock(ctx context.Context, transactionID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:revert:%d", transactionID)).Err()
}
