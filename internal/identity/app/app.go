package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/cache"
	"github.com/aussiebroadwan/bookly/internal/identity/cache/drivers/memory"
	"github.com/aussiebroadwan/bookly/internal/identity/cache/drivers/redis"
	identityhttp "github.com/aussiebroadwan/bookly/internal/identity/http"
	"github.com/aussiebroadwan/bookly/internal/identity/service"
	"github.com/aussiebroadwan/bookly/internal/identity/store"
	"github.com/aussiebroadwan/bookly/internal/identity/store/drivers/postgres"
	"github.com/aussiebroadwan/bookly/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/bookly/pkg/cryptox"
	"github.com/aussiebroadwan/bookly/pkg/idx"
	"github.com/aussiebroadwan/bookly/pkg/jwtx"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// connectTimeout bounds opening the store and cache at startup.
	connectTimeout = 10 * time.Second
)

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	cache  cache.Cache
	tokens *jwtx.Codec
	hasher *cryptox.Hasher

	identity *service.IdentityService

	// HTTP server
	server *http.Server
	router *identityhttp.Router
}

// Option customises New.
type Option func(*Application)

// WithLogger replaces the logger built from the config.
func WithLogger(logger *slog.Logger) Option {
	return func(app *Application) { app.logger = logger }
}

// New creates a new Application with all dependencies initialised. On error
// anything already opened is closed again.
func New(cfg Config, opts ...Option) (*Application, error) {
	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "bookly-identity",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initCache(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.closeBackends()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the HTTP handler, e.g. for httptest.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.closeBackends()
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

// Shutdown drains in-flight requests, then closes the cache and the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.closeBackends(); err != nil {
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) closeBackends() error {
	var errs []error
	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
		errs = append(errs, err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the store named by DATABASE_URL and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	kind, err := storeKind(app.cfg.DatabaseURL)
	if err != nil {
		return err
	}

	var db store.Store
	switch kind {
	case backendPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqliteDSN(app.cfg.DatabaseURL))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", driverName(kind))
	return nil
}

// sqliteDSN turns "sqlite:<path>" into a modernc DSN. "file:" DSNs pass
// through untouched.
func sqliteDSN(url string) string {
	path, ok := strings.CutPrefix(url, "sqlite:")
	if !ok {
		return url
	}
	path = strings.TrimPrefix(path, "//")
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// initCache opens the session cache named by REDIS_URL.
func (app *Application) initCache(ctx context.Context) error {
	kind, err := cacheKind(app.cfg.RedisURL)
	if err != nil {
		return err
	}

	switch kind {
	case backendRedis:
		c, err := redis.Open(ctx, app.cfg.RedisURL, app.cfg.CachePrefix)
		if err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
		app.cache = c
	default:
		app.cache = memory.New()
		app.logger.Warn("using in-process session cache; sessions do not survive restarts")
	}

	app.logger.Info("session cache ready", "driver", driverName(kind))
	return nil
}

// initServices builds the codecs and the identity service.
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	app.hasher, err = cryptox.NewHasher(cryptox.HasherConfig{
		Scheme:      cryptox.Scheme(app.cfg.PasswordScheme),
		Memory:      app.cfg.Argon2MemoryKiB,
		Iterations:  app.cfg.Argon2Iterations,
		Parallelism: app.cfg.Argon2Parallelism,
		BcryptCost:  app.cfg.BcryptCost,
		Pepper:      pepper,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	app.tokens, err = jwtx.NewCodec(jwtx.CodecConfig{
		Secret:          app.cfg.JWTSecret,
		PreviousSecrets: app.cfg.JWTPreviousSecrets,
		Algorithm:       app.cfg.JWTAlgorithm,
		Issuer:          app.cfg.JWTIssuer,
		AccessTTL:       app.cfg.accessTTL(),
		RefreshTTL:      app.cfg.refreshTTL(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	app.identity = &service.IdentityService{
		Store:                          app.db,
		Cache:                          app.cache,
		Tokens:                         app.tokens,
		Hasher:                         app.hasher,
		IDs:                            idx.NewGenerator(),
		ProfileTTL:                     app.cfg.ProfileCacheTTL,
		OperationTimeout:               app.cfg.OperationTimeout,
		RevokeSessionsOnPasswordChange: app.cfg.RevokeSessionsOnPasswordChange,
	}
	return nil
}

// initHTTP initialises the router and server.
func (app *Application) initHTTP() {
	app.router = identityhttp.NewRouter(identityhttp.RouterConfig{
		Service:        app.identity,
		Store:          app.db,
		Cache:          app.cache,
		BuildVersion:   BuildVersion,
		Logger:         app.logger,
		AllowedOrigins: app.cfg.CORSAllowedOrigins,
		RateLimits: identityhttp.RateLimits{
			Auth:   app.cfg.RateLimitAuth.limiter(),
			User:   app.cfg.RateLimitUser.limiter(),
			Public: app.cfg.RateLimitPublic.limiter(),
		},
	})

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func driverName(b backend) string {
	switch b {
	case backendPostgres:
		return "postgres"
	case backendSQLite:
		return "sqlite"
	case backendRedis:
		return "redis"
	case backendMemory:
		return "memory"
	}
	return "unknown"
}
