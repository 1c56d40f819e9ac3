package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checker reports the health of one dependency. nil means healthy.
type Checker func() error

// CheckerConfig holds checker tuning
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns the default checker configuration
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

// Pinger is satisfied by *sql.DB and *pgxpool.Pool.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a ping method without a context-suffixed name,
// such as (*pgxpool.Pool).Ping.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// DatabaseChecker returns a health check function for PostgreSQL
func DatabaseChecker(db Pinger) Checker {
	return DatabaseCheckerWithConfig(db, DefaultCheckerConfig())
}

// DatabaseCheckerWithConfig is DatabaseChecker with a custom timeout
func DatabaseCheckerWithConfig(db Pinger, cfg CheckerConfig) Checker {
	return func() error {
		if db == nil {
			return errors.New("database connection is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return db.PingContext(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client redis.Cmdable) Checker {
	return RedisCheckerWithConfig(client, DefaultCheckerConfig())
}

// RedisCheckerWithConfig is RedisChecker with a custom timeout
func RedisCheckerWithConfig(client redis.Cmdable, cfg CheckerConfig) Checker {
	return func() error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// StatusReporter is implemented by connections that track their own state,
// such as the event bus.
type StatusReporter interface {
	Healthy() error
}

// StatusChecker wraps a StatusReporter
func StatusChecker(r StatusReporter) Checker {
	return func() error {
		if r == nil {
			return errors.New("not configured")
		}
		return r.Healthy()
	}
}

// CompositeChecker runs every checker and joins the failures, sorted by name.
// Each failure is prefixed with "name.child".
func CompositeChecker(name string, checkers map[string]Checker) Checker {
	return func() error {
		names := make([]string, 0, len(checkers))
		for n := range checkers {
			names = append(names, n)
		}
		sort.Strings(names)

		var failures []string
		for _, n := range names {
			if err := checkers[n](); err != nil {
				failures = append(failures, fmt.Sprintf("%s.%s: %v", name, n, err))
			}
		}
		if len(failures) > 0 {
			return errors.New(strings.Join(failures, "; "))
		}
		return nil
	}
}

// AsyncChecker bounds a checker that does not honour a context itself.
func AsyncChecker(checker Checker, timeout time.Duration) Checker {
	return func() error {
		done := make(chan error, 1)
		go func() {
			done <- checker()
		}()

		select {
		case err := <-done:
			return err
		case <-time.After(timeout):
			return fmt.Errorf("health check timed out after %v", timeout)
		}
	}
}

// CachedChecker memoises a checker result for cacheTTL so that frequent
// readiness probes do not hammer the dependency.
type CachedChecker struct {
	checker  Checker
	cacheTTL time.Duration

	mu        sync.Mutex
	lastCheck time.Time
	lastErr   error
	now       func() time.Time
}

// NewCachedChecker wraps checker
func NewCachedChecker(checker Checker, cacheTTL time.Duration) *CachedChecker {
	return &CachedChecker{checker: checker, cacheTTL: cacheTTL, now: time.Now}
}

// Check returns the cached result or runs the checker
func (c *CachedChecker) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.lastCheck.IsZero() && now.Sub(c.lastCheck) < c.cacheTTL {
		return c.lastErr
	}
	c.lastErr = c.checker()
	c.lastCheck = now
	return c.lastErr
}
