package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/httpserver"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/index"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	"github.com/MrSnakeDoc/marks/internal/redis"
	"github.com/MrSnakeDoc/marks/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/version"
)

// App is the marks server.
type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	memIndex    *index.MemoryIndex
	reloader    *scheduler.BookmarkReloader
	gc          *scheduler.GarbageCollector
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	memIndex := index.NewMemoryIndex()

	var (
		redisClient *goredis.Client
		store       *redisstore.Store
	)
	if cfg.RedisEnabled() {
		// fail fast: configured redis must be reachable
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
		store = redisstore.NewStore(client)

		syncer := scheduler.NewRedisSyncer(store, memIndex, loggerClient)
		if err := syncer.Sync(context.Background()); err != nil {
			loggerClient.Warn("failed to sync from redis on startup, will load from file",
				logger.Error(err))
		}
	} else {
		loggerClient.Info("redis not configured, running memory-only")
	}

	reloadTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewBookmarkReloader(
		cfg.BookmarkFile,
		store,
		memIndex,
		loggerClient,
		cfg.ReloadInterval,
		reloadTrigger,
	)

	gc := scheduler.NewGarbageCollector(
		store,
		memIndex,
		loggerClient,
		cfg.GCInterval,
		scheduler.DefaultGCThreshold,
	)

	collector := metrics.NewCollector(metrics.NewRegistry())

	prober := linkhealth.NewProber(
		linkhealth.NewHTTPChecker(linkhealth.NewHTTPClient(), cfg.ProbeUserAgent),
		linkhealth.NewTCPProber(nil, nil),
		linkhealth.ProberConfig{
			DefaultTimeout: cfg.ProbeDefaultTimeout,
			MaxTimeout:     cfg.ProbeMaxTimeout,
			TCPCap:         cfg.ProbeTCPCap,
		},
		linkhealth.WithRecorder(collector),
		linkhealth.WithProberLogger(loggerClient),
	)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RedisClient:     redisClient,
		Store:           store,
		MemoryIndex:     memIndex,
		Prober:          prober,
		Metrics:         collector,
		ProbeRateBurst:  cfg.ProbeRateBurst,
		ProbeRatePerMin: cfg.ProbeRatePerMin,
		ReloadTrigger:   reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		memIndex:    memIndex,
		reloader:    reloader,
		gc:          gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting marks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("marks %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bookmark reloader: %w", err)
	}
	a.logger.Info("bookmark reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval),
		logger.Int("bookmarks", a.memIndex.BookmarkCount()))

	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ marks stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
