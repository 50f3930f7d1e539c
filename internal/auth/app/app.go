package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/clubfig/clubfig/internal/auth/http"
	"github.com/clubfig/clubfig/internal/auth/obs"
	"github.com/clubfig/clubfig/internal/auth/service"
	"github.com/clubfig/clubfig/internal/auth/store"
	"github.com/clubfig/clubfig/internal/auth/store/drivers/postgres"
	"github.com/clubfig/clubfig/internal/auth/store/drivers/sqlite"
	"github.com/clubfig/clubfig/internal/auth/throttle"
	"github.com/clubfig/clubfig/pkg/cryptox"
	"github.com/clubfig/clubfig/pkg/jwtx"
	"github.com/clubfig/clubfig/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	redis   *redis.Client
	metrics *obs.Metrics

	authenticator  *service.Authenticator
	tenants        *service.TenantService
	statsCollector *service.TokenStatsCollector

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: obs.New(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.statsCollector.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion, "driver", app.cfg.DBDriver)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, then stops background work and closes
// the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.statsCollector.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DBDriver {
	case "postgres":
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(fmt.Sprintf("file:%s", app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	app.tenants = &service.TenantService{Store: app.db}

	app.authenticator = &service.Authenticator{
		Store: app.db,
		Issuer: &service.TokenIssuer{
			Signer:    jwtx.NewSignerHS256([]byte(app.cfg.JWTSecret)),
			Issuer:    app.cfg.Issuer,
			Audience:  app.cfg.Audience,
			AccessTTL: app.cfg.AccessTTL,
		},
		MaxFailedAttempts: service.DefaultMaxFailedAttempts,
		LockoutDuration:   service.DefaultLockoutDuration,
		RefreshTTL:        app.cfg.RefreshTTL,
		RevokeAllOnReuse:  app.cfg.RefreshReuseRevokesAll,
	}

	app.statsCollector = service.NewTokenStatsCollector(app.db, app.metrics, app.logger, app.cfg.StatsInterval)
}

func (app *Application) loginThrottle() throttle.Limiter {
	if app.cfg.RedisAddr == "" {
		app.logger.Info("login throttle is process-local")
		return throttle.NewMemory(app.cfg.LoginThrottleAttempts, app.cfg.LoginThrottleWindow)
	}

	app.redis = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
	app.logger.Info("login throttle uses redis", "addr", app.cfg.RedisAddr)
	return throttle.NewRedis(app.redis, "clubfig:", app.cfg.LoginThrottleAttempts, app.cfg.LoginThrottleWindow)
}

func (app *Application) initHTTP() {
	verifier := jwtx.NewHS256([]byte(app.cfg.JWTSecret), jwtx.VerifyOptions{
		Issuer:   app.cfg.Issuer,
		Audience: app.cfg.Audience,
		Leeway:   app.cfg.JWTLeeway,
	})

	limiter := app.loginThrottle()

	router := httpapi.NewRouter(verifier, app.tenants, app.metrics, app.logger)
	router.Auth = httpapi.NewAuthHandler(app.authenticator, limiter, app.metrics, httpapi.CookieConfig{
		Secure: app.cfg.CookieSecure,
	})
	router.Readies["database"] = app.db
	if r, ok := limiter.(*throttle.Redis); ok {
		router.Readies["redis"] = r
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
