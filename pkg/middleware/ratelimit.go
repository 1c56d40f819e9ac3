package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/logger"
	"github.com/richxcame/upi-guard/pkg/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter is the part of *ratelimit.Limiter the middleware needs.
type RateLimiter interface {
	Enabled() bool
	RuleFor(endpoint string, identityType ratelimit.IdentityType) ratelimit.Rule
	Allow(ctx context.Context, endpoint, identity string, rule ratelimit.Rule, identityType ratelimit.IdentityType) (ratelimit.Result, error)
}

// RateLimit applies the limiter to the route. Authenticated callers are
// keyed by user id, everyone else by client IP. Limiter errors fail open.
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !limiter.Enabled() {
			c.Next()
			return
		}

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		identity, identityType := GetUserID(c), ratelimit.IdentityAuthenticated
		if identity == "" {
			identity, identityType = c.ClientIP(), ratelimit.IdentityAnonymous
		}

		rule := limiter.RuleFor(endpoint, identityType)
		result, err := limiter.Allow(c.Request.Context(), endpoint, identity, rule, identityType)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable, allowing request",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if result.ResetAfter > 0 {
			h.Set("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(result.ResetAfter.Seconds()))))
		}

		if !result.Allowed {
			label := "anonymous"
			if identityType == ratelimit.IdentityAuthenticated {
				label = "authenticated"
			}
			rateLimitRejections.WithLabelValues(endpoint, label).Inc()

			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			common.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
