package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/captcha"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/config"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/database"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/email"
	kafkainfra "github.com/Kevin-Shelton/cx-portal-auth/internal/infra/kafka"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/logger"
	redisinfra "github.com/Kevin-Shelton/cx-portal-auth/internal/infra/redis"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/security"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/infra/telemetry"
	postgresrepo "github.com/Kevin-Shelton/cx-portal-auth/internal/repository/postgres"
	redisrepo "github.com/Kevin-Shelton/cx-portal-auth/internal/repository/redis"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/transport/http/routes"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/usecase"
)

// Application wires configuration, infrastructure, and transport into
// a runnable service.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

// New builds the full dependency graph.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	keyProvider, err := security.NewKeyProvider(cfg.App.Env, cfg.Session.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	sessionIssuer := security.NewSessionIssuer(keyProvider, cfg.Session.KeyID, cfg.Session.Issuer)
	if cfg.Session.TTL > 0 {
		sessionIssuer = sessionIssuer.WithTTL(cfg.Session.TTL)
	}

	repos := postgresrepo.NewRepositories(pool)

	attempts := redisrepo.NewAttemptRepository(redisClient.Client(), redisrepo.AttemptConfig{
		KeyPrefix: cfg.Redis.AttemptPrefix,
		Window:    cfg.Login.AttemptWindow,
	})

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var mailer port.ActivationMailer
	if cfg.Mail.Endpoint != "" {
		mailer = email.NewHTTPSender(cfg.Mail, log)
	} else {
		log.Info("mail endpoint not configured, activation links go to the log")
		mailer = email.NewLogSender(log)
	}

	captchaVerifier := captcha.NewHTTPVerifier(cfg.Captcha)
	passwordValidator := security.DefaultPasswordValidator()

	activationService := usecase.NewActivationService(
		repos.Users, repos.Tokens, mailer, eventPublisher, sessionIssuer,
		passwordValidator, cfg.App.BaseURL, log)
	if cfg.Token.ActivationTTL > 0 {
		activationService = activationService.WithTTL(cfg.Token.ActivationTTL)
	}

	authService := usecase.NewAuthService(repos.Users, attempts, captchaVerifier, eventPublisher, sessionIssuer, log)
	if cfg.Login.CaptchaThreshold > 0 {
		authService = authService.WithCaptchaThreshold(cfg.Login.CaptchaThreshold)
	}
	if cfg.Captcha.MinScore > 0 {
		authService = authService.WithCaptchaMinScore(cfg.Captcha.MinScore)
	}

	userService := usecase.NewUserService(repos.Users, repos.Tokens, activationService, eventPublisher, log)

	engine := routes.Register(routes.Dependencies{
		Config: cfg,
		Logger: log,
		Services: routes.ServiceSet{
			Users:      userService,
			Activation: activationService,
			Auth:       authService,
		},
		Metrics:  telemetry.NewMetrics(),
		Database: pool,
		Cache:    redisClient,
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting portal auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
