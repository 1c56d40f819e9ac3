package main

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/upi-guard/pkg/health"
)

const (
	poolCheckTTL     = 5 * time.Second
	postgresDeadline = 3 * time.Second
)

// readinessChecks builds the /readyz checks. Both postgres handles report
// under one entry and share a deadline.
func readinessChecks(pool, sqlDB health.Pinger, cache redis.Cmdable) map[string]func() error {
	postgres := health.CompositeChecker("postgres", map[string]health.Checker{
		"pool": health.NewCachedChecker(health.DatabaseChecker(pool), poolCheckTTL).Check,
		"sql":  health.DatabaseChecker(sqlDB),
	})

	return map[string]func() error{
		"postgres": health.AsyncChecker(postgres, postgresDeadline),
		"redis":    health.RedisChecker(cache),
	}
}
