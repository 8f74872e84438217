package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/config"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/telemetry"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/transport/http/handlers"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/transport/http/middleware"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/usecase"
)

// DatabaseChecker reports database connectivity for the readiness probe.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker reports cache connectivity for the readiness probe.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// ServiceSet groups the application services the routes need.
type ServiceSet struct {
	Users      *usecase.UserService
	Activation *usecase.ActivationService
	Auth       *usecase.AuthService
}

// Dependencies carries everything the router needs.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Metrics  *telemetry.Metrics
	Database DatabaseChecker
	Cache    CacheChecker
}

// Register builds the gin engine with all routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	healthOpts := []handlers.HealthOption{}
	if deps.Database != nil {
		healthOpts = append(healthOpts, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOpts = append(healthOpts, handlers.WithReadinessCheck("cache", deps.Cache.HealthCheck))
	}
	health := handlers.NewHealthHandler(healthOpts...)

	r.GET("/healthz", health.Status)
	r.GET("/readyz", health.Readiness)
	if deps.Config.Telemetry.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(
		deps.Services.Activation,
		deps.Services.Auth,
		deps.Logger,
		handlers.WithSessionCookie(deps.Config.Session.CookieName, deps.Config.Session.CookieSecure),
		handlers.WithMetrics(deps.Metrics),
	)
	authHandler.RegisterRoutes(api.Group("/auth"))

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAPIKey(deps.Config.Admin.APIKey))
	handlers.NewAdminUsersHandler(deps.Services.Users, deps.Logger).RegisterRoutes(admin)
	handlers.NewAdminTokensHandler(deps.Services.Activation, deps.Logger, deps.Metrics).RegisterRoutes(admin)

	return r
}
