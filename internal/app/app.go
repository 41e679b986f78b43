package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"

	"github.com/utafrali/storefront/internal/broadcast"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	pgrepo "github.com/utafrali/storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Version is stamped at build time.
var Version = "dev"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	origin string

	rdb      *redis.Client
	pool     *pgxpool.Pool
	producer *pkgkafka.Producer

	service    *service.StorefrontService
	listener   *broadcast.Listener
	purger     *pgrepo.SlotRepository
	httpServer *http.Server

	shutdownTracer tracing.ShutdownFunc
	bgCtx          context.Context
	stopBg         context.CancelFunc
	bg             conc.WaitGroup
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger, origin: uuid.NewString()}
	a.bgCtx, a.stopBg = context.WithCancel(context.Background())

	shutdownTracer, err := tracing.InitTracer(initCtx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	healthHandler := health.NewHandler()
	var opts []service.Option

	repo, err := a.initRepository(initCtx, healthHandler, &opts)
	if err != nil {
		a.stopBg()
		a.closeClients()
		return nil, err
	}

	// Domain events.
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, a.origin, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Catalog enrichment.
	if cfg.CatalogURL != "" {
		httpCfg := httpclient.DefaultConfig()
		httpCfg.Timeout = time.Duration(cfg.CatalogTimeoutMs) * time.Millisecond
		httpCfg.MaxRetries = cfg.CatalogMaxRetries
		cb := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg),
			httpclient.DefaultCircuitBreakerConfig("catalog"), logger)
		catalogClient := catalog.NewClient(cfg.CatalogURL, cb)
		opts = append(opts, service.WithCatalog(catalogClient))
		healthHandler.RegisterNonCritical("catalog", catalogClient.Ping)
		logger.Info("catalog enrichment enabled", slog.String("url", cfg.CatalogURL))
	}

	opts = append(opts, service.WithIdleTimeout(cfg.SessionIdle()))
	a.service = service.NewStorefrontService(repo, publisher, logger, opts...)

	router := handler.NewRouter(a.bgCtx, a.service, healthHandler, logger, handler.RouterConfig{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.RequestTimeoutSec+5) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// initRepository connects the configured slot backend and registers its
// health check. The redis backend also enables cross-instance broadcast.
func (a *App) initRepository(ctx context.Context, hh *health.Handler, opts *[]service.Option) (repository.SlotRepository, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()), slog.Int("db", cfg.RedisDB))

		repo := redisrepo.NewSlotRepository(rdb, cfg.SlotTTL())
		hh.RegisterCritical("redis", repo.Ping)

		a.listener = broadcast.NewListener(rdb, repo, a.origin, logger)
		*opts = append(*opts, service.WithBroadcast(broadcast.NewRedisNotifier(rdb, a.origin), a.listener))
		return repo, nil

	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

		repo := pgrepo.NewSlotRepository(pool, cfg.SlotTTL())
		hh.RegisterCritical("postgres", pool.Ping)
		if cfg.SlotTTLHours > 0 {
			a.purger = repo
		}
		return repo, nil

	default:
		logger.Warn("using in-memory slot storage; state is lost on restart")
		return memory.NewSlotRepository(), nil
	}
}

// Run starts the HTTP server and background workers and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	a.bg.Go(func() { a.service.RunEvictor(a.bgCtx) })
	if a.listener != nil {
		a.bg.Go(func() { a.runListener(a.bgCtx) })
	}
	if a.purger != nil {
		a.bg.Go(func() { a.runPurger(a.bgCtx, a.cfg.PurgeInterval()) })
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// runListener keeps the broadcast subscription alive, resubscribing after
// connection failures.
func (a *App) runListener(ctx context.Context) {
	for {
		if err := a.listener.Run(ctx); err != nil {
			a.logger.Error("slot change listener stopped", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (a *App) runPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.purger.PurgeExpired(ctx)
			if err != nil {
				a.logger.Error("purge expired slots", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.Info("purged expired slots", slog.Int64("count", n))
			}
		}
	}
}

// Shutdown gracefully stops all components. Open sessions are flushed
// before the storage clients close.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.stopBg()
	a.bg.Wait()

	a.service.Close(shutdownCtx)
	a.logger.Info("flushed open sessions")

	a.closeClients()

	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeClients() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
