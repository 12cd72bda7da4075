// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/deckhall/deckhall/internal/auth"
	authpg "github.com/deckhall/deckhall/internal/auth/postgres"
	authredis "github.com/deckhall/deckhall/internal/auth/redis"
	"github.com/deckhall/deckhall/internal/config"
	"github.com/deckhall/deckhall/internal/deck"
	deckpg "github.com/deckhall/deckhall/internal/deck/postgres"
	"github.com/deckhall/deckhall/internal/game"
	gamepg "github.com/deckhall/deckhall/internal/game/postgres"
	"github.com/deckhall/deckhall/internal/logging"
	"github.com/deckhall/deckhall/internal/observability"
	"github.com/deckhall/deckhall/internal/presence"
	"github.com/deckhall/deckhall/internal/store"
	"github.com/deckhall/deckhall/internal/web"
	"github.com/deckhall/deckhall/pkg/errutil"
)

const (
	shutdownTimeout   = 5 * time.Second
	readinessTimeout  = time.Second
	readHeaderTimeout = 10 * time.Second
	retryBase         = 50 * time.Millisecond
)

// NewServeCmd creates the serve subcommand. A nil deps uses the defaults.
func NewServeCmd(deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		Long: `Start the server: the JSON API, the games namespace socket and the
static client, plus the metrics and health listener when configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, deps)
		},
	}

	registerConfigFlags(cmd)
	return cmd
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseFactory == nil {
		out.DatabaseFactory = func(ctx context.Context, url string) (Database, error) {
			return store.Connect(ctx, url, store.ConnectOptions{})
		}
	}
	if out.Migrate == nil {
		out.Migrate = applyMigrations
	}
	if out.RedisFactory == nil {
		out.RedisFactory = func(ctx context.Context, url string) (goredis.UniversalClient, error) {
			return authredis.Open(ctx, url)
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	if out.LogOutput == nil {
		out.LogOutput = os.Stderr
	}
	return &out
}

// runServeWithDeps runs the server until ctx is cancelled or a listener
// fails.
func runServeWithDeps(ctx context.Context, cfg *config.Config, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.SetDefault(logging.Options{
		Service: "deckhall",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Output:  deps.LogOutput,
	})
	gin.SetMode(gin.ReleaseMode)

	logger.Info("starting deckhall",
		"http_addr", cfg.HTTP.Addr,
		"session_store", cfg.Session.Store,
		"auto_migrate", cfg.Database.AutoMigrate,
	)

	if cfg.Database.AutoMigrate {
		if err := deps.Migrate(cfg.Database.URL); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
		}
		logger.Info("database schema up to date")
	}

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	sessionStore, closeSessions, err := openSessionStore(ctx, cfg, db, deps)
	if err != nil {
		return err
	}
	defer closeSessions()

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	hub := presence.NewHub(
		presence.WithLogger(logger),
		presence.WithObserver(metrics),
		presence.WithOriginPatterns(web.HostPatterns(cfg.HTTP.CORSOrigins)...),
	)

	handler, sessions, err := buildApp(cfg, db, sessionStore, hub, metrics, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go sessions.RunReaper(ctx, cfg.Session.ReapInterval)

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, registry, readiness(db),
			observability.WithServerLogger(logger))
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(logger, obsServer)
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	logger.Info("deckhall ready", "addr", listener.Addr().String())

	var serveErr error
	select {
	case serveErr = <-errChan:
		serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "http server shutdown", err)
	}
	// Sockets are hijacked, so Shutdown does not wait for them.
	hub.Shutdown()
	stopObservability(logger, obsServer)
	cancel()

	logger.Info("shutdown complete")
	return serveErr
}

// openSessionStore returns the configured session backend and a func
// releasing it.
func openSessionStore(ctx context.Context, cfg *config.Config, db Database, deps *ServeDeps) (auth.SessionStore, func(), error) {
	if cfg.Session.Store != config.SessionStoreRedis {
		return authpg.NewSessionStore(db), func() {}, nil
	}

	rdb, err := deps.RedisFactory(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, oops.Code("REDIS_CONNECT_FAILED").With("operation", "connect to redis").Wrap(err)
	}
	slog.Info("connected to redis")
	return authredis.NewSessionStore(rdb), func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("error closing redis client", "error", err)
		}
	}, nil
}

// buildApp wires repositories, services and the router.
func buildApp(
	cfg *config.Config,
	db Database,
	sessionStore auth.SessionStore,
	hub *presence.Hub,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (http.Handler, *auth.SessionManager, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, nil, err
	}

	users := authpg.NewUserRepository(db)
	sessions, err := auth.NewSessionManager(users, sessionStore,
		auth.WithSessionTTL(cfg.Session.TTL),
		auth.WithSessionLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	login, err := auth.NewLogin(users, hasher, logger)
	if err != nil {
		return nil, nil, err
	}
	signup, err := auth.NewSignup(users, hasher, logger)
	if err != nil {
		return nil, nil, err
	}

	retrier := store.NewRetrier(cfg.Store.RetryAttempts, retryBase)
	decks, err := deck.NewService(deckpg.NewRepository(db), retrier, deck.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	games, err := game.NewService(gamepg.NewRepository(db), hub,
		game.WithLogger(logger),
		game.WithRetrier(retrier),
	)
	if err != nil {
		return nil, nil, err
	}

	router, err := web.NewRouter(web.Config{
		StaticDir:    cfg.HTTP.StaticDir,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		CookieSecure: cfg.HTTP.CookieSecure,
	}, web.Deps{
		Sessions: sessions,
		Login:    login,
		Signup:   signup,
		Decks:    decks,
		Games:    games,
		Presence: hub,
		Recorder: metrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return router, sessions, nil
}

// readiness reports ready while the database answers a ping.
func readiness(db Database) observability.ReadinessChecker {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		return db.Ping(ctx) == nil
	}
}

func applyMigrations(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()
	return m.Up()
}

func stopObservability(logger *slog.Logger, s *observability.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
