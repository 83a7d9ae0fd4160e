package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AgentOS/harness/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/harness/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/harness/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/monitoring"
)

const shutdownTimeout = 30 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	handler http.Handler
	runner  harness.Runner
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance. runner may be nil, in which case
// one is built from cfg.Harness.
func NewServer(cfg *config.Config, logger *logging.Logger, runner harness.Runner) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing harness server",
		zap.String("port", cfg.Server.Port),
		logging.Isolation(cfg.Harness.Isolation),
		zap.Int("timeout_ms", cfg.Harness.TimeoutMs),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)

	registry := Registry(runner)
	if runner == nil {
		runner, registry = NewRunner(cfg.Harness, logger.Logger, metrics)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger(logger.Logger))
	router.Use(middleware.Recovery(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	router.Use(middleware.CORS(corsCfg))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	limits := apihttp.Limits{
		MaxCodeBytes:   cfg.Harness.MaxCodeBytes,
		MaxSearchPaths: apihttp.DefaultMaxSearchPaths,
	}
	handlers := apihttp.NewHandlers(apihttp.Options{
		Runner:    runner,
		Registry:  registry,
		Locator:   Locator(cfg.Harness),
		Metrics:   metrics,
		Logger:    logger.Logger,
		Isolation: cfg.Harness.Isolation,
		Limits:    limits,
	})
	wsHandler := ws.NewHandler(runner, limits, metrics, logger.Logger)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/execute", handlers.Execute)
	router.GET("/native/libraries", handlers.NativeLibraries)
	router.GET("/ws", wsHandler.HandleConnection)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.GET("/metrics/json", handlers.MetricsJSON)

	// WebSocket upgrades need the raw connection, so only plain HTTP is compressed
	mux := http.NewServeMux()
	mux.Handle("/ws", router)
	mux.Handle("/", gzhttp.GzipHandler(router))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		handler: mux,
		runner:  runner,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Registry returns the library registry behind runner, if it exposes one
func Registry(runner harness.Runner) *native.Registry {
	if c, ok := runner.(interface{ Registry() *native.Registry }); ok {
		return c.Registry()
	}
	return nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Runner returns the runner requests are executed with
func (s *Server) Runner() harness.Runner {
	return s.runner
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// Close flushes the logger
func (s *Server) Close() error {
	_ = s.logger.Sync()
	return nil
}
