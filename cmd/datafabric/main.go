package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/datafabric/internal/application/capabilities"
	"github.com/aescanero/datafabric/internal/application/intents"
	"github.com/aescanero/datafabric/internal/application/lifecycle"
	"github.com/aescanero/datafabric/internal/application/signals"
	"github.com/aescanero/datafabric/internal/application/workers"
	"github.com/aescanero/datafabric/internal/config"
	"github.com/aescanero/datafabric/pkg/adapters/events/memory"
	"github.com/aescanero/datafabric/pkg/adapters/events/redis"
	"github.com/aescanero/datafabric/pkg/adapters/metrics/prometheus"
	memregistry "github.com/aescanero/datafabric/pkg/adapters/registry/memory"
	redisregistry "github.com/aescanero/datafabric/pkg/adapters/registry/redis"
	"github.com/aescanero/datafabric/pkg/adapters/sink"
	"github.com/aescanero/datafabric/pkg/adapters/sources"
	"github.com/aescanero/datafabric/pkg/adapters/submission"
	"github.com/aescanero/datafabric/pkg/api/grpc"
	"github.com/aescanero/datafabric/pkg/api/http"
	"github.com/aescanero/datafabric/pkg/api/websocket"
	"github.com/aescanero/datafabric/pkg/catalog"
	"github.com/aescanero/datafabric/pkg/ports"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting data fabric integration",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("domain", cfg.Domain),
		zap.String("backend", cfg.Backend))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	registry := promclient.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsCollector := prometheus.NewCollector(registry)

	// Event bus and asset registry
	var (
		eventBus    ports.EventBus
		assets      ports.AssetRegistry
		redisClient *goredis.Client
	)
	switch cfg.Backend {
	case config.BackendRedis:
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		consumer := cfg.Redis.ConsumerName
		if consumer == "" {
			consumer = fmt.Sprintf("datafabric-%d", os.Getpid())
		}
		bus, err := redis.NewStreamsEventBus(redisClient, cfg.Redis.ConsumerGroup, consumer, cfg.Redis.StreamMaxLen, logger)
		if err != nil {
			logger.Fatal("failed to create event bus", zap.Error(err))
		}
		eventBus = bus

		assetRegistry, err := redisregistry.NewAssetRegistry(redisClient, logger)
		if err != nil {
			logger.Fatal("failed to create asset registry", zap.Error(err))
		}
		assets = assetRegistry
	default:
		eventBus = memory.NewEventBus(logger)
		assets = memregistry.NewAssetRegistry()
	}

	// Collaborators
	publisher, err := submission.NewEventPublisher(eventBus, logger)
	if err != nil {
		logger.Fatal("failed to create event publisher", zap.Error(err))
	}
	eventSink, err := sink.NewEventSink(eventBus, logger)
	if err != nil {
		logger.Fatal("failed to create event sink", zap.Error(err))
	}
	observability := sink.NewTee(prometheus.NewSink(registry), eventSink)

	// Application components
	capabilityRegistry := capabilities.NewRegistry(
		sources.NewFSEnumerator(sourceFS(cfg.CapabilitySourcesDir, catalog.Capabilities()), ".", logger),
		assets,
		metricsCollector,
		logger,
		capabilities.WithDomain(cfg.Domain),
		capabilities.WithDuplicatePolicy(cfg.Policy()),
	)
	provider := capabilities.NewProvider(capabilityRegistry, publisher, logger)

	signalRegistry := signals.NewRegistry(
		sources.NewFSEnumerator(sourceFS(cfg.SignalSourcesDir, catalog.Signals()), ".", logger),
		metricsCollector,
		logger,
		signals.WithDomain(cfg.Domain),
		signals.WithDuplicatePolicy(cfg.Policy()),
	)
	emitter := signals.NewEmitter(signalRegistry, observability, metricsCollector, logger,
		signals.WithEmitterDomain(cfg.Domain))

	engine := intents.NewEngine(metricsCollector, logger,
		intents.WithDomain(cfg.Domain),
		intents.WithSubmitter(publisher))

	manager := lifecycle.NewManager(capabilityRegistry, provider, signalRegistry, logger, cfg.Timeouts.LoadTimeout)

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueSize,
		eventBus,
		emitter,
		metricsCollector,
		logger,
		cfg.Workers.HealthCheckInterval,
	)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:         cfg.HTTPPort,
		Lifecycle:    manager,
		Capabilities: capabilityRegistry,
		Provider:     provider,
		Intents:      engine,
		Signals:      signalRegistry,
		Emitter:      emitter,
		Workers:      workerPool,
		EventBus:     eventBus,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Logger:       logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, logger)
	if err := wsHandler.Start(ctx); err != nil {
		logger.Fatal("failed to start signal stream", zap.Error(err))
	}
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:      cfg.GRPCPort,
		Lifecycle: manager,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers first so probes can observe the load
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	if err := manager.Start(ctx); err != nil {
		logger.Error("lifecycle start failed", zap.Error(err))
	}

	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	status := manager.Status()
	logger.Info("data fabric integration started",
		zap.String("state", string(status.State)),
		zap.Int("registered", status.Registered),
		zap.Int("signals", status.Signals.Total),
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("lifecycle shutdown error", zap.Error(err))
	}

	cancel()
	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("data fabric integration shut down complete")
}

// sourceFS returns the directory when one is configured and the embedded
// catalogue otherwise
func sourceFS(dir string, embedded fs.FS) fs.FS {
	if dir == "" {
		return embedded
	}
	return os.DirFS(dir)
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
