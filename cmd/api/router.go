package main

import (
	"net/http"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/upi-guard/internal/checks"
	"github.com/richxcame/upi-guard/internal/feed"
	"github.com/richxcame/upi-guard/internal/reports"
	"github.com/richxcame/upi-guard/internal/transactions"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/middleware"
	"github.com/richxcame/upi-guard/pkg/tracing"
)

type routerDeps struct {
	cfg           *config.Config
	sentry        bool
	checks        *checks.Handler
	reports       *reports.Handler
	transactions  *transactions.Handler
	feed          *feed.Handler
	limiter       middleware.RateLimiter
	readinessDeps map[string]func() error
}

func setupRouter(d routerDeps) *gin.Engine {
	if d.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if d.sentry {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger("/healthz", "/readyz", "/metrics"))
	router.Use(middleware.SecurityHeaders(d.cfg.IsProduction()))
	router.Use(middleware.Metrics(serviceName))
	router.Use(tracing.Middleware(serviceName))
	router.Use(cors.New(corsConfig(d.cfg.Server.AllowedOrigins())))

	router.GET("/healthz", common.HealthCheck(serviceName, d.cfg.Server.Version))
	router.GET("/readyz", common.HealthCheckWithDeps(serviceName, d.cfg.Server.Version, d.readinessDeps))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	// The feed upgrades to a websocket, so it stays outside the timeout
	// and body limits.
	d.feed.RegisterRoutes(api)

	rest := api.Group("")
	rest.Use(middleware.RequestTimeout(d.cfg.Server.RequestTimeout))
	rest.Use(middleware.MaxBodySize(d.cfg.Server.MaxBodyBytes))

	limit := middleware.RateLimit(d.limiter)
	d.checks.RegisterRoutes(rest, limit)
	d.reports.RegisterRoutes(rest, limit)
	d.transactions.RegisterRoutes(rest)

	admin := rest.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.cfg.JWT.Secret, d.cfg.JWT.Issuer))
	admin.Use(middleware.RequireAdmin())
	d.reports.RegisterAdminRoutes(admin)

	router.NoRoute(func(c *gin.Context) {
		common.ErrorResponse(c, http.StatusNotFound, "route not found")
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	cfg.ExposeHeaders = []string{middleware.CorrelationIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}

	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
