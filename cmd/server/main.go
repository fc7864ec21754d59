package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/fortyfive/internal/adapter/httpserver"
	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/adapter/postgres"
	"github.com/pscheid92/fortyfive/internal/adapter/redis"
	"github.com/pscheid92/fortyfive/internal/adapter/sqlite"
	"github.com/pscheid92/fortyfive/internal/adapter/twitch"
	"github.com/pscheid92/fortyfive/internal/bot"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/fortyfive"
	"github.com/pscheid92/fortyfive/internal/platform/config"
	"github.com/pscheid92/fortyfive/internal/platform/crypto"
	"github.com/pscheid92/fortyfive/internal/platform/logging"
	"github.com/pscheid92/fortyfive/internal/platform/telemetry"
	"github.com/pscheid92/fortyfive/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type storage struct {
	attempts      domain.AttemptRepository
	subscriptions domain.EventSubRepository
	close         func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not initialized yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStorage(ctx context.Context, cfg *config.Config, m *metrics.StoreMetrics) storage {
	if cfg.DatabaseDriver == config.DriverSQLite {
		db, err := sqlite.Open(ctx, cfg.DatabaseURL, m)
		if err != nil {
			slog.Error("Failed to open SQLite database", "error", err)
			os.Exit(1)
		}
		return storage{
			attempts:      sqlite.NewAttemptRepo(db),
			subscriptions: sqlite.NewEventSubRepo(db),
			close:         func() { _ = db.Close() },
		}
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(m))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	return storage{
		attempts:      postgres.NewAttemptRepo(pool),
		subscriptions: postgres.NewEventSubRepo(pool),
		close:         pool.Close,
	}
}

func setupRedis(ctx context.Context, cfg *config.Config, m *metrics.StoreMetrics) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupTokenCipher(cfg *config.Config) crypto.Cipher {
	if cfg.TokenEncryptionKey == "" {
		if cfg.IsProduction() {
			slog.Warn("TOKEN_ENCRYPTION_KEY not set, access token is stored unencrypted")
		}
		return crypto.Noop{}
	}

	cipher, err := crypto.NewAESGCM(cfg.TokenEncryptionKey)
	if err != nil {
		slog.Error("Invalid token encryption key", "error", err)
		os.Exit(1)
	}
	return cipher
}

// setupEventSub prepares the conduit and subscribes the configured channels.
// It returns nil when no callback URL is configured.
func setupEventSub(ctx context.Context, cfg *config.Config, repo domain.EventSubRepository) *twitch.EventSubManager {
	if cfg.WebhookCallbackURL == "" {
		slog.Info("WEBHOOK_CALLBACK_URL not set, skipping EventSub bootstrap")
		return nil
	}

	esm, err := twitch.NewEventSubManager(cfg.TwitchClientID, cfg.TwitchClientSecret, repo, cfg.WebhookCallbackURL, cfg.WebhookSecret, cfg.BotUserID)
	if err != nil {
		slog.Error("Failed to create EventSub manager", "error", err)
		os.Exit(1)
	}

	if err := esm.Setup(ctx); err != nil {
		slog.Error("Failed to set up webhook conduit", "error", err)
		os.Exit(1)
	}

	if err := esm.SubscribeAll(ctx, cfg.Channels()); err != nil {
		slog.Error("Failed to subscribe some channels", "error", err)
	}
	return esm
}

func runGracefulShutdown(srv *httpserver.Server, dispatcher *bot.Dispatcher, flushTraces func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := dispatcher.Wait(ctx); err != nil {
			slog.Warn("Commands still running at shutdown", "error", err)
		}
		flushTraces()

		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version, "database", cfg.DatabaseDriver)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	flushTraces, err := telemetry.Init(startupCtx, cfg.OTLPEndpoint, "fortyfive", version.Version)
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	m := metrics.New(version.Get())

	store := setupStorage(startupCtx, cfg, m.Store)
	defer store.close()

	redisClient := setupRedis(startupCtx, cfg, m.Store)
	defer func() { _ = redisClient.Close() }()

	configs := redis.NewConfigStore(redisClient)
	tokenStore := redis.NewTokenStore(redisClient, setupTokenCipher(cfg))

	httpClient := &http.Client{Timeout: 10 * time.Second}
	credentials := twitch.NewCredentialManager(
		tokenStore,
		twitch.NewTokenValidator(cfg.TwitchClientID, httpClient),
		twitch.NewOAuthGranter(cfg.TwitchClientID, cfg.TwitchClientSecret, httpClient),
		m.Twitch,
	)
	helixClient := twitch.NewHelixClient(cfg.TwitchClientID, cfg.BotUserID, credentials, httpClient, m.Twitch, m.Store)

	engine := fortyfive.NewEngine(store.attempts, redis.NewTimeoutStore(redisClient), helixClient, clockwork.NewRealClock(), fortyfive.UniformDraw, m.Commands)
	router := bot.NewRouter(engine, configs, helixClient, cfg.BotUserID, m.Commands)
	dispatcher := bot.NewDispatcher(router, cfg.CommandTimeout)

	webhookHandler := twitch.NewWebhookHandler(cfg.WebhookSecret, dispatcher, redis.NewDeliveryDedup(redisClient), m.Webhook)

	var subscriptions domain.EventSubService
	if esm := setupEventSub(startupCtx, cfg, store.subscriptions); esm != nil {
		subscriptions = esm
	}

	healthChecks := []httpserver.HealthCheck{
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		{Name: "database", Check: store.attempts.Ping},
	}

	srv := httpserver.NewServer(cfg, webhookHandler, configs, subscriptions, healthChecks, m.Handler(), m.HTTP)

	done := runGracefulShutdown(srv, dispatcher, flushTraces)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
