package resilience

import (
	"context"
	"time"

	"github.com/richxcame/upi-guard/pkg/config"
)

// BuildSettings produces a Settings struct from primitive tuning knobs.
func BuildSettings(name string, intervalSeconds, timeoutSeconds, failureThreshold, successThreshold int) Settings {
	interval := time.Duration(intervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if failureThreshold <= 0 {
		failureThreshold = 5
	}

	if successThreshold <= 0 {
		successThreshold = 1
	}

	return Settings{
		Name:             name,
		Interval:         interval,
		Timeout:          timeout,
		FailureThreshold: uint32(failureThreshold),
		SuccessThreshold: uint32(successThreshold),
	}
}

// Policy is the retry and breaker combination applied to one dependency.
// A nil *Policy runs operations once, unguarded.
type Policy struct {
	Retry   RetryConfig
	Breaker *CircuitBreaker
}

// NewPolicy builds a Policy for the named dependency. retryable classifies
// errors worth another attempt; ignorable lists errors that are normal
// outcomes (not found, constraint violations) and must not trip the breaker.
func NewPolicy(name string, cfg config.ResilienceConfig, retryable func(error) bool, ignorable func(error) bool) *Policy {
	retry := DefaultRetryConfig()
	retry.RetryableChecker = retryable
	if cfg.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		retry.InitialBackoff = cfg.RetryInitialBackoff
	}
	if cfg.RetryMaxBackoff > 0 {
		retry.MaxBackoff = cfg.RetryMaxBackoff
	}
	p := &Policy{Retry: retry}

	if cfg.BreakerEnabled {
		settings := BuildSettings(name, cfg.BreakerIntervalSeconds, cfg.BreakerTimeoutSeconds, cfg.BreakerFailureLimit, cfg.BreakerSuccessLimit)
		if ignorable != nil {
			settings.IsSuccessful = func(err error) bool {
				return err == nil || ignorable(err)
			}
		}
		p.Breaker = NewCircuitBreaker(settings, GracefulDegradation(name))
	}

	return p
}

// Do runs op under the policy.
func (p *Policy) Do(ctx context.Context, op Operation) (interface{}, error) {
	if p == nil {
		return op(ctx)
	}
	return RetryWithBreaker(ctx, p.Retry, p.Breaker, op)
}

// Exec is Do for operations that only return an error.
func (p *Policy) Exec(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := p.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, op(ctx)
	})
	return err
}
