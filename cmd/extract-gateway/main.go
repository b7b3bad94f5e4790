package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/config"
	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/common/logger"
	"github.com/readlens/engine/internal/common/metricsserver"
	"github.com/readlens/engine/internal/common/redis"
	"github.com/readlens/engine/internal/extract/auth"
	"github.com/readlens/engine/internal/extract/cache"
	"github.com/readlens/engine/internal/extract/configtest"
	"github.com/readlens/engine/internal/extract/events"
	"github.com/readlens/engine/internal/extract/fetch"
	"github.com/readlens/engine/internal/extract/harvest"
	"github.com/readlens/engine/internal/extract/metrics"
	"github.com/readlens/engine/internal/extract/pipeline"
	"github.com/readlens/engine/internal/extract/ratelimit"
	"github.com/readlens/engine/internal/extract/safety"
	"github.com/readlens/engine/internal/extract/server"
	extracttls "github.com/readlens/engine/internal/extract/tls"
	"github.com/readlens/engine/internal/extract/validate"
)

const version = "1.0.0"

func main() {
	// Parse command-line flags
	configPath := flag.String("c", config.DefaultConfigPath, "path to configuration file")
	testMode := flag.Bool("t", false, "test configuration and exit")
	flag.Parse()

	// If test mode, run validation
	if *testMode {
		var testURL string
		if flag.NArg() > 0 {
			testURL = flag.Arg(0)
		}
		exitCode := runConfigTest(*configPath, testURL)
		os.Exit(exitCode)
	}

	// Create initial logger for startup
	initialLogger, err := logger.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	initialLogger.Info("Starting extraction gateway",
		zap.String("config_path", *configPath),
		zap.String("version", version))

	configManager, err := config.NewGatewayConfigManager(*configPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("Failed to create config manager", zap.Error(err))
	}

	cfg := configManager.GetConfig()

	// Reconfigure logger based on config settings
	dynamicLogger, err := logger.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	defer dynamicLogger.Sync()

	gwLogger := dynamicLogger.Logger

	metricsCollector := metrics.NewCollector(cfg.Metrics.Namespace, gwLogger)

	// Pick the storage backends: Redis when configured, in-process
	// otherwise.
	var (
		redisClient *redis.Client
		store       cache.Store
		limiter     ratelimit.Limiter
	)
	if cfg.Redis != nil {
		redisClient, err = redis.NewClient(cfg.Redis, gwLogger)
		if err != nil {
			gwLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		store = cache.NewRedisStore(redisClient, configManager, metricsCollector, gwLogger)
		limiter = ratelimit.NewRedisLimiter(redisClient, configManager, gwLogger)
	} else {
		gwLogger.Info("No redis section configured, using in-process cache and rate limiter")
		store = cache.NewMemoryStore(configManager, metricsCollector, gwLogger)
		limiter = ratelimit.NewMemoryLimiter(configManager, gwLogger)
	}

	// Initialize extraction services
	validator := safety.NewValidator(configManager, gwLogger)
	fetcher := fetch.NewFetcher(configManager, metricsCollector, gwLogger)
	harvester := harvest.NewHarvester(gwLogger)
	authGuard := auth.NewGuard(configManager, gwLogger)

	extractPipeline := pipeline.NewPipeline(
		validator,
		limiter,
		store,
		fetcher,
		harvester,
		metricsCollector,
		configManager,
		gwLogger,
	)

	// Start metrics server if enabled
	metricsServer, err := metricsserver.StartMetricsServer(
		cfg.Metrics.Enabled,
		cfg.Metrics.Listen,
		cfg.Metrics.Path,
		metricsCollector,
		gwLogger,
	)
	if err != nil {
		gwLogger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	// Initialize event emitter
	var eventEmitter events.Emitter = &events.NoopEmitter{}
	if cfg.Events != nil && cfg.Events.File.Enabled {
		fileEmitter, err := events.NewFileEmitter(cfg.Events.File, gwLogger)
		if err != nil {
			gwLogger.Fatal("Failed to create file emitter", zap.Error(err))
		}
		eventEmitter = events.NewMultiEmitter([]events.Emitter{fileEmitter}, gwLogger)
		gwLogger.Info("Event logging initialized",
			zap.String("path", cfg.Events.File.Path))
	}

	// Create public server with pre-built services
	srv := server.NewServer(
		configManager,
		redisClient,
		gwLogger,
		authGuard,
		extractPipeline,
		metricsCollector,
		store,
		limiter,
		eventEmitter,
		version,
	)

	// Create TLS listener before starting public servers to fail fast
	var tlsListener net.Listener
	if cfg.Server.TLS.Enabled {
		configDir := filepath.Dir(*configPath)
		certPath := cfg.Server.TLS.CertFile
		keyPath := cfg.Server.TLS.KeyFile
		if !filepath.IsAbs(certPath) {
			certPath = filepath.Join(configDir, certPath)
		}
		if !filepath.IsAbs(keyPath) {
			keyPath = filepath.Join(configDir, keyPath)
		}

		var err error
		tlsListener, err = extracttls.CreateTLSListener(cfg.Server.TLS.Listen, certPath, keyPath)
		if err != nil {
			gwLogger.Fatal("Failed to create TLS listener", zap.Error(err))
		}
	}

	// Channel for server startup errors
	serverErrors := make(chan error, 2)

	// Create and start HTTP server
	httpLifecycle := &serverLifecycle{
		server:  newFastHTTPServer(srv.HandleRequest, cfg.Server),
		name:    "HTTP",
		address: cfg.Server.Listen,
		logger:  gwLogger,
	}
	httpLifecycle.StartWithErrorChan(serverErrors)

	// Create and start HTTPS server if TLS is enabled
	var httpsLifecycle *serverLifecycle
	if cfg.Server.TLS.Enabled {
		httpsLifecycle = &serverLifecycle{
			server:   newFastHTTPServer(srv.HandleRequest, cfg.Server),
			listener: tlsListener,
			name:     "HTTPS",
			address:  cfg.Server.TLS.Listen,
			logger:   gwLogger,
		}
		httpsLifecycle.StartWithErrorChan(serverErrors)
	}

	// Wait briefly for servers to start and check for immediate failures
	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-serverErrors:
		gwLogger.Fatal("Server failed to start", zap.Error(err))
	default:
		// Servers started successfully
	}

	if cfg.Server.TLS.Enabled {
		gwLogger.Info("Extraction gateway started",
			zap.String("http_addr", cfg.Server.Listen),
			zap.String("https_addr", cfg.Server.TLS.Listen))
	} else {
		gwLogger.Info("Extraction gateway started", zap.String("http_addr", cfg.Server.Listen))
	}

	// Switch to configured log level after startup is complete
	dynamicLogger.SwitchToConfiguredLevel()

	// Reload configuration on SIGHUP. The previous config stays active
	// when the reload fails.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			gwLogger.Info("Received SIGHUP, reloading configuration")
			newCfg, err := configManager.Reload()
			if err != nil {
				gwLogger.Error("Config reload failed, keeping previous configuration", zap.Error(err))
				continue
			}
			dynamicLogger.ApplyLevels(newCfg.Log)
		}
	}()

	// Wait for shutdown signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		dynamicLogger.EnsureInfoLevelForShutdown()
		gwLogger.Info("Shutting down extraction gateway...")
	case err := <-serverErrors:
		dynamicLogger.EnsureInfoLevelForShutdown()
		gwLogger.Error("Server startup failed, initiating shutdown", zap.Error(err))
	}

	// Flip /ready to 503 so load balancers stop routing new requests
	// while in-flight ones drain.
	srv.StartDraining()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown metrics server
	if metricsServer != nil {
		gwLogger.Info("Shutting down metrics server")
		if err := metricsServer.ShutdownWithContext(shutdownCtx); err != nil {
			gwLogger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// Shutdown public servers in parallel
	var wg sync.WaitGroup
	wg.Add(1)
	if httpsLifecycle != nil {
		wg.Add(1)
	}
	go func() {
		defer wg.Done()
		httpLifecycle.Shutdown(shutdownCtx)
	}()
	if httpsLifecycle != nil {
		go func() {
			defer wg.Done()
			httpsLifecycle.Shutdown(shutdownCtx)
		}()
	}
	wg.Wait()
	gwLogger.Info("Public servers shutdown complete")

	// Closes the event emitter
	srv.Shutdown()

	gwLogger.Info("Extraction gateway stopped")
}

const serverName = "ReadLens/1.0"

func newFastHTTPServer(handler fasthttp.RequestHandler, cfg configtypes.ServerConfig) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      handler,
		Name:                         serverName,
		ReadTimeout:                  time.Duration(cfg.ReadTimeout),
		WriteTimeout:                 time.Duration(cfg.WriteTimeout),
		IdleTimeout:                  time.Duration(cfg.IdleTimeout),
		MaxRequestBodySize:           cfg.MaxBodySize,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultDate:                true,
	}
}

type serverLifecycle struct {
	server   *fasthttp.Server
	listener net.Listener // nil for HTTP (uses ListenAndServe), set for HTTPS
	name     string
	address  string
	logger   *zap.Logger
}

func (s *serverLifecycle) StartWithErrorChan(errChan chan<- error) {
	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe(s.address)
		}
		if err != nil {
			s.logger.Error("Server error", zap.String("name", s.name), zap.Error(err))
			if errChan != nil {
				errChan <- fmt.Errorf("%s server failed: %w", s.name, err)
			}
		}
	}()
	s.logger.Info("Server started", zap.String("name", s.name), zap.String("address", s.address))
}

func (s *serverLifecycle) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server", zap.String("name", s.name))
	err := s.server.ShutdownWithContext(ctx)
	if err != nil {
		s.logger.Error("Server shutdown error", zap.String("name", s.name), zap.Error(err))
	}
	return err
}

// runConfigTest runs configuration validation and optional URL testing
func runConfigTest(configPath string, testURL string) int {
	result, err := validate.ValidateConfiguration(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		return 1
	}

	if !result.Valid {
		fmt.Println("Configuration validation FAILED:")
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Printf("- %s line %d: %s\n", e.File, e.Line, e.Message)
			} else {
				fmt.Printf("- %s: %s\n", e.File, e.Message)
			}
		}
		return 1
	}

	fmt.Printf("configuration file %s syntax is ok\n", result.ConfigPath)

	if len(result.Warnings) > 0 {
		fmt.Println()
		fmt.Printf("Configuration warnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			if w.Line > 0 {
				fmt.Printf("- %s line %d: %s\n", w.File, w.Line, w.Message)
			} else {
				fmt.Printf("- %s: %s\n", w.File, w.Message)
			}
		}
		fmt.Println()
	}

	fmt.Println("configuration test is successful")

	if testURL != "" {
		urlResult, err := configtest.TestURL(testURL, result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nURL test error: %v\n", err)
			return 1
		}
		configtest.PrintURLTestResult(urlResult)
	}

	return 0
}
