package checks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/pkg/config"
	redisClient "github.com/richxcame/upi-guard/pkg/redis"
	"github.com/richxcame/upi-guard/pkg/resilience"
)

// Cache stores checks in Redis. The recent list always holds up to
// MaxRecentLimit entries; callers slice it to the requested size.
type Cache struct {
	client redisClient.ClientInterface
	cfg    config.CacheConfig
	policy *resilience.Policy
}

// NewCache creates a Redis-backed check cache. policy may be nil.
func NewCache(client redisClient.ClientInterface, cfg config.CacheConfig, policy *resilience.Policy) *Cache {
	return &Cache{client: client, cfg: cfg, policy: policy}
}

func (c *Cache) generationKey() string {
	return fmt.Sprintf("%s:checks:recent:gen", c.cfg.KeyPrefix)
}

func (c *Cache) recentKey(gen int64) string {
	return fmt.Sprintf("%s:checks:recent:%d", c.cfg.KeyPrefix, gen)
}

func (c *Cache) checkKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:checks:%s", c.cfg.KeyPrefix, id)
}

// RecentGeneration returns the current generation of the recent list. Read
// it before loading from the database and pass it to SetRecent, so a list
// loaded before a newer check was stored lands under a key nobody reads.
func (c *Cache) RecentGeneration(ctx context.Context) (int64, error) {
	var gen int64
	err := c.policy.Exec(ctx, func(ctx context.Context) error {
		n, err := c.client.Counter(ctx, c.generationKey())
		gen = n
		return err
	})
	return gen, err
}

// GetRecent returns the recent list cached for gen or redis.ErrCacheMiss
func (c *Cache) GetRecent(ctx context.Context, gen int64) ([]*Check, error) {
	var checks []*Check
	err := c.policy.Exec(ctx, func(ctx context.Context) error {
		return c.client.GetJSON(ctx, c.recentKey(gen), &checks)
	})
	if err != nil {
		return nil, err
	}
	return checks, nil
}

// SetRecent caches the recent list for gen
func (c *Cache) SetRecent(ctx context.Context, gen int64, checks []*Check) error {
	return c.policy.Exec(ctx, func(ctx context.Context) error {
		return c.client.SetJSON(ctx, c.recentKey(gen), checks, c.cfg.RecentChecksTTL)
	})
}

// InvalidateRecent moves to a new generation after a check is stored.
// Lists cached under older generations expire on their own.
func (c *Cache) InvalidateRecent(ctx context.Context) error {
	return c.policy.Exec(ctx, func(ctx context.Context) error {
		_, err := c.client.Increment(ctx, c.generationKey())
		return err
	})
}

// GetCheck returns a cached check or redis.ErrCacheMiss
func (c *Cache) GetCheck(ctx context.Context, id uuid.UUID) (*Check, error) {
	check := &Check{}
	err := c.policy.Exec(ctx, func(ctx context.Context) error {
		return c.client.GetJSON(ctx, c.checkKey(id), check)
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

// SetCheck caches a single check. Stored checks never change.
func (c *Cache) SetCheck(ctx context.Context, check *Check) error {
	return c.policy.Exec(ctx, func(ctx context.Context) error {
		return c.client.SetJSON(ctx, c.checkKey(check.ID), check, c.cfg.CheckTTL)
	})
}
