package resilience

import (
	"context"

	"github.com/richxcame/upi-guard/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc decides the outcome of a call the breaker refused.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback returns ErrCircuitOpen without further handling.
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// GracefulDegradation logs which dependency is degraded and returns
// ErrCircuitOpen so the caller can map it to a 503.
func GracefulDegradation(dependency string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("circuit breaker open, dependency degraded",
			zap.String("dependency", dependency),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
