package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errPermanent = errors.New("permanent")
)

func fastRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

// ============== Retry ==============

func TestRetry(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(c *RetryConfig)
		failures     int
		failWith     error
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "success first try",
			wantAttempts: 1,
		},
		{
			name:         "success after retries",
			failures:     2,
			failWith:     errTransient,
			wantAttempts: 3,
		},
		{
			name:         "exhausted",
			failures:     10,
			failWith:     errTransient,
			wantErr:      errTransient,
			wantAttempts: 3,
		},
		{
			name:         "not in retryable list",
			mutate:       func(c *RetryConfig) { c.RetryableErrors = []error{errTransient} },
			failures:     10,
			failWith:     errPermanent,
			wantErr:      errPermanent,
			wantAttempts: 1,
		},
		{
			name:         "checker takes precedence",
			mutate:       func(c *RetryConfig) { c.RetryableChecker = func(err error) bool { return errors.Is(err, errPermanent) } },
			failures:     10,
			failWith:     errPermanent,
			wantErr:      errPermanent,
			wantAttempts: 3,
		},
		{
			name:         "open circuit is not retried",
			failures:     10,
			failWith:     ErrCircuitOpen,
			wantErr:      ErrCircuitOpen,
			wantAttempts: 1,
		},
		{
			name:         "canceled is not retried",
			failures:     10,
			failWith:     context.Canceled,
			wantErr:      context.Canceled,
			wantAttempts: 1,
		},
		{
			name:         "zero attempts still runs once",
			mutate:       func(c *RetryConfig) { c.MaxAttempts = 0 },
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastRetry()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			attempts := 0
			result, err := Retry(context.Background(), cfg, func(ctx context.Context) (interface{}, error) {
				attempts++
				if attempts <= tt.failures {
					return nil, tt.failWith
				}
				return "ok", nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", result)
		})
	}
}

func TestRetry_ContextDeadlineStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Second
	cfg.EnableJitter = false
	cfg.MaxAttempts = 5

	attempts := 0
	_, err := Retry(ctx, cfg, func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, errTransient
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}

	assert.Equal(t, time.Second, calculateBackoff(1, cfg))
	assert.Equal(t, 4*time.Second, calculateBackoff(3, cfg))
	assert.Equal(t, 16*time.Second, calculateBackoff(5, cfg))
	assert.Equal(t, 30*time.Second, calculateBackoff(6, cfg))

	cfg.BackoffMultiplier = 0
	assert.Equal(t, 2*time.Second, calculateBackoff(2, cfg), "zero multiplier defaults to 2")

	cfg.EnableJitter = true
	for i := 0; i < 20; i++ {
		d := calculateBackoff(3, cfg)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestAddJitter_Zero(t *testing.T) {
	assert.Equal(t, time.Duration(0), addJitter(0))
}

// ============== Breaker ==============

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-opens",
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, nil)

	op := func(ctx context.Context) (interface{}, error) { return nil, errTransient }

	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(context.Background(), op)
		assert.ErrorIs(t, err, errTransient)
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	_, err := breaker.Execute(context.Background(), op)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_IgnorableErrorsDoNotTrip(t *testing.T) {
	errNotFound := errors.New("not found")
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-ignorable",
		Timeout:          time.Minute,
		FailureThreshold: 1,
		IsSuccessful:     func(err error) bool { return err == nil || errors.Is(err, errNotFound) },
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
			return nil, errNotFound
		})
		assert.ErrorIs(t, err, errNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestCircuitBreaker_GracefulDegradation(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "test-degraded", Timeout: time.Minute, FailureThreshold: 1}, GracefulDegradation("postgres"))

	_, _ = breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, errTransient
	})

	_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		t.Fatal("operation must not run while open")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestRetryWithBreaker(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "test-retry-breaker", Timeout: time.Second, FailureThreshold: 5}, NoopFallback)

	attempts := 0
	result, err := RetryWithBreaker(context.Background(), fastRetry(), breaker, func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, attempts)
}

// ============== Policy ==============

func TestPolicy(t *testing.T) {
	cfg := config.ResilienceConfig{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      true,
		BreakerFailureLimit: 10,
	}

	p := NewPolicy("test-policy", cfg, func(err error) bool { return errors.Is(err, errTransient) }, nil)
	require.NotNil(t, p.Breaker)
	assert.Equal(t, "test-policy", p.Breaker.Name())

	attempts := 0
	err := p.Exec(context.Background(), func(ctx context.Context) error {
		attempts++
		return errPermanent
	})
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)

	attempts = 0
	err = p.Exec(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestNewPolicy_DefaultsUnsetRetryFields(t *testing.T) {
	p := NewPolicy("test-defaults", config.ResilienceConfig{RetryMaxBackoff: 5 * time.Second}, nil, nil)
	def := DefaultRetryConfig()

	assert.Equal(t, def.MaxAttempts, p.Retry.MaxAttempts)
	assert.Equal(t, def.InitialBackoff, p.Retry.InitialBackoff)
	assert.Equal(t, 5*time.Second, p.Retry.MaxBackoff)
	assert.Nil(t, p.Breaker)
}

func TestPolicy_Nil(t *testing.T) {
	var p *Policy
	result, err := p.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestBuildSettings_Defaults(t *testing.T) {
	s := BuildSettings("db", 0, 0, 0, 0)
	assert.Equal(t, time.Minute, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, uint32(5), s.FailureThreshold)
	assert.Equal(t, uint32(1), s.SuccessThreshold)
}
