package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/upi-guard/pkg/config"
)

// IdentityType distinguishes callers with a verified token from anonymous
// callers keyed by IP.
type IdentityType int

const (
	IdentityAnonymous IdentityType = iota
	IdentityAuthenticated
)

// Rule is the budget applied to one identity on one endpoint.
type Rule struct {
	Limit  int
	Burst  int
	Window time.Duration
}

// Result describes the outcome of a single Allow call.
type Result struct {
	Allowed      bool
	Remaining    int
	RetryAfter   time.Duration
	Limit        int
	Window       time.Duration
	ResetAfter   time.Duration
	IdentityKey  string
	EndpointKey  string
	IdentityType IdentityType
}

// tokenBucketScript keeps {tokens, ts} in a hash. It refills at
// limit/window tokens per second up to capacity and takes one token.
// Returns {allowed, remaining, retry_after_ms, reset_after_ms}.
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  ts = now
end

local elapsed = math.max(0, now - ts)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
local retry_after = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after = math.ceil(((1 - tokens) / rate) * 1000)
end

local reset_after = math.ceil(((capacity - tokens) / rate) * 1000)

redis.call("HSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, ttl)

return {allowed, math.floor(tokens), retry_after, reset_after}
`

// Limiter is a Redis-backed token bucket shared by every API replica.
type Limiter struct {
	client redis.Scripter
	cfg    config.RateLimitConfig
	script *redis.Script
	now    func() time.Time
}

// NewLimiter creates a limiter. client is usually a *redis.Client.
func NewLimiter(client redis.Scripter, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		cfg:    cfg,
		script: redis.NewScript(tokenBucketScript),
		now:    time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Enabled reports whether requests are limited at all.
func (l *Limiter) Enabled() bool {
	return l.cfg.Enabled
}

// RuleFor resolves the rule for endpoint, applying any per-endpoint override
// on top of the identity type's defaults.
func (l *Limiter) RuleFor(endpoint string, identityType IdentityType) Rule {
	rule := Rule{Window: l.cfg.Window()}
	if identityType == IdentityAuthenticated {
		rule.Limit = l.cfg.DefaultLimit
		rule.Burst = l.cfg.DefaultBurst
	} else {
		rule.Limit = l.cfg.AnonymousLimit
		rule.Burst = l.cfg.AnonymousBurst
	}

	if override, ok := l.cfg.EndpointOverrides[endpoint]; ok {
		if identityType == IdentityAuthenticated {
			if override.AuthenticatedLimit > 0 {
				rule.Limit = override.AuthenticatedLimit
			}
			if override.AuthenticatedBurst >= 0 {
				rule.Burst = override.AuthenticatedBurst
			}
		} else {
			if override.AnonymousLimit > 0 {
				rule.Limit = override.AnonymousLimit
			}
			if override.AnonymousBurst >= 0 {
				rule.Burst = override.AnonymousBurst
			}
		}
		if override.WindowSeconds > 0 {
			rule.Window = time.Duration(override.WindowSeconds) * time.Second
		}
	}

	if rule.Burst < 0 {
		rule.Burst = 0
	}
	return rule
}

// Allow takes one token for identity on endpoint. A disabled limiter or a
// non-positive limit always allows.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string, rule Rule, identityType IdentityType) (Result, error) {
	result := Result{
		Allowed:      true,
		Remaining:    rule.Limit,
		Limit:        rule.Limit,
		Window:       rule.Window,
		IdentityKey:  identity,
		EndpointKey:  endpoint,
		IdentityType: identityType,
	}
	if !l.cfg.Enabled || rule.Limit <= 0 {
		return result, nil
	}

	window := rule.Window
	if window <= 0 {
		window = l.cfg.Window()
	}
	result.Window = window

	capacity := rule.Limit + rule.Burst
	rate := float64(rule.Limit) / window.Seconds()
	now := float64(l.now().UnixNano()) / float64(time.Second)
	ttl := (2 * window).Milliseconds()

	key := fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpoint, identity)
	raw, err := l.script.Run(ctx, l.client, []string{key},
		capacity, formatFloat(rate), formatFloat(now), ttl,
	).Slice()
	if err != nil {
		return result, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 4 {
		return result, fmt.Errorf("rate limit script: unexpected reply length %d", len(raw))
	}

	result.Allowed = toInt(raw[0]) == 1
	result.Remaining = toInt(raw[1])
	result.RetryAfter = time.Duration(toFloat(raw[2])) * time.Millisecond
	result.ResetAfter = time.Duration(toFloat(raw[3])) * time.Millisecond
	return result, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 10, 64)
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
