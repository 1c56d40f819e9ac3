package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/resilience"
)

// ErrCacheMiss is returned by GetJSON when the key does not exist.
var ErrCacheMiss = errors.New("redis: cache miss")

// ClientInterface is the subset of Client used by caches and health checks.
type ClientInterface interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Counter(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) *redis.StatusCmd
}

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

var _ ClientInterface = (*Client)(nil)

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// SetJSON stores value encoded as JSON.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, payload, expiration).Err()
}

// GetJSON decodes the JSON value at key into dest. A missing key yields
// ErrCacheMiss.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	payload, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Delete deletes a key
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.Del(ctx, keys...).Err()
}

// Counter returns the integer stored at key, or 0 when the key is missing.
func (c *Client) Counter(ctx context.Context, key string) (int64, error) {
	n, err := c.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Increment atomically adds one to the counter at key.
func (c *Client) Increment(ctx context.Context, key string) (int64, error) {
	return c.Incr(ctx, key).Result()
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

var nonRetryableMessages = []string{
	"wrongtype",
	"err syntax",
	"err invalid",
	"noauth",
	"wrongpass",
	"noperm",
	"err unknown",
	"execabort",
}

// IsRedisRetryable reports whether a Redis error is worth retrying. Command
// and auth errors are final; anything else, including cluster redirects and
// LOADING/BUSY replies, is treated as transient.
func IsRedisRetryable(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) || errors.Is(err, ErrCacheMiss) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range nonRetryableMessages {
		if strings.Contains(msg, fragment) {
			return false
		}
	}
	return true
}

// NewPolicy returns the retry and breaker policy for Redis calls. A cache
// miss is a normal answer and never counts against the breaker.
func NewPolicy(cfg config.ResilienceConfig) *resilience.Policy {
	return resilience.NewPolicy("redis", cfg, IsRedisRetryable, func(err error) bool {
		return errors.Is(err, ErrCacheMiss) || errors.Is(err, redis.Nil)
	})
}
