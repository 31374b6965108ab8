package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/fanout"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/http/api"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/http/swagger"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/http/ws"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/mq/natsbus"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/mq/redisbus"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/mq/worker"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/repository"
	app "github.com/Yuvrajsinh007/BidCycle/internal/app"
	"github.com/Yuvrajsinh007/BidCycle/internal/config"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/idempotency"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
	"github.com/Yuvrajsinh007/BidCycle/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	statsInterval         = 5 * time.Second
	natsStreamMaxAge      = 7 * 24 * time.Hour
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(context.Background(), "bidcycle exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	var redisClient *redis.Client
	if cfg.LedgerBackend == config.LedgerRedis || cfg.FanoutBackend == config.FanoutRedis {
		redisClient, err = repository.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
	}

	store, err := openStore(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	if cfg.SeedFile != "" {
		n, err := repository.LoadCatalog(ctx, store, cfg.SeedFile)
		if err != nil {
			return err
		}
		log.Info(ctx, "catalog loaded", logger.String("file", cfg.SeedFile), logger.Int("created", n))
	}

	hub := fanout.NewHub(fanout.WithBuffer(cfg.SubscriberBuffer))
	defer hub.Close()

	// With redis fan-out every instance, this one included, hears events
	// through the bridge, so the hub is not a direct sink.
	var sinks []worker.Sink
	if cfg.FanoutBackend == config.FanoutRedis {
		sinks = append(sinks, redisbus.NewPublisher(redisClient))
	} else {
		sinks = append(sinks, hub)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = natsbus.Connect(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer natsConn.Close()
		var opts []natsbus.Option
		if cfg.NATSStream != "" {
			opts = append(opts, natsbus.WithStream(cfg.NATSStream, natsStreamMaxAge))
		}
		pub, err := natsbus.New(ctx, natsConn, cfg.NATSSubjectPrefix, opts...)
		if err != nil {
			return err
		}
		sinks = append(sinks, pub)
	}

	dispatcher := worker.NewDispatcher(sinks,
		worker.WithShards(cfg.DispatchShards),
		worker.WithQueueSize(cfg.DispatchQueueSize),
		worker.WithLogger(log.Named("dispatcher")),
	)
	dispatcher.Start(ctx)

	svc := app.New(
		app.WithLogger(log.Named("engine")),
		app.WithStore(store),
		app.WithPublisher(dispatcher),
		app.WithIncrement(cfg.Increment()),
		app.WithMaxAttempts(cfg.MaxResolveAttempts),
		app.WithSweepInterval(cfg.SweepInterval),
		app.WithSweepConcurrency(cfg.SweepConcurrency),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	cache, err := idempotency.New(cfg.IdempotencyCacheSize)
	if err != nil {
		return fmt.Errorf("idempotency cache: %w", err)
	}

	sweeper := app.NewSweeper(svc)

	router := mux.NewRouter()
	router.Use(api.LoggingMiddleware(log.Named("http")))
	api.NewServer(svc, svc, api.WithIdempotencyCache(cache), api.WithSweepReporter(sweeper)).Register(router)
	ws.NewHandler(hub, svc, log.Named("ws")).Register(router)
	swagger.Register(router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "dispatcher shutdown failed", logger.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	if cfg.FanoutBackend == config.FanoutRedis {
		g.Go(func() error {
			return redisbus.NewBridge(redisClient, hub, log.Named("redis-bridge")).Run(gctx)
		})
	}
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// openStore selects the ledger backend.
func openStore(ctx context.Context, cfg *config.Config, client *redis.Client) (repository.Store, error) {
	switch cfg.LedgerBackend {
	case config.LedgerRedis:
		return repository.NewRedisStore(client), nil
	case config.LedgerPostgres:
		return repository.NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return repository.NewMemoryStore(ctx), nil
	}
}

// startSystemMetricsUpdater updates process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.GetStats(ctx)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
