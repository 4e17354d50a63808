package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mojomaniac/skillswap/internal/activity"
	"github.com/mojomaniac/skillswap/internal/auth"
	"github.com/mojomaniac/skillswap/internal/config"
	"github.com/mojomaniac/skillswap/internal/githubapi"
	"github.com/mojomaniac/skillswap/internal/handler"
	"github.com/mojomaniac/skillswap/internal/health"
	"github.com/mojomaniac/skillswap/internal/identity"
	"github.com/mojomaniac/skillswap/internal/metrics"
	"github.com/mojomaniac/skillswap/internal/model"
	"github.com/mojomaniac/skillswap/internal/provider"
	"github.com/mojomaniac/skillswap/internal/store"
	"github.com/mojomaniac/skillswap/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "skillswap: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "config/local.yaml", "path to YAML config file")
	flag.Parse()

	configFile, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = configFile.Close()
	}()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(logLevel(cfg.Server.LogLevel))
	logger, err := loggerConfig.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	telemetryRuntime, err := telemetry.Setup(telemetry.Config{
		Enabled:          cfg.Telemetry.OTELEnabled,
		ServiceName:      "skillswap",
		TraceMode:        cfg.Telemetry.OTELTraceMode,
		TraceSampleRatio: cfg.Telemetry.OTELTraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetryRuntime.Shutdown(shutdownCtx)
	}()

	st, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("build token issuer: %w", err)
	}

	providers := buildProviders(cfg)
	if len(providers) == 0 {
		logger.Warn("no oauth providers configured, only password login is available")
	}

	coordinator := auth.NewCoordinator(
		auth.NewReplayGuard(),
		providers,
		identity.NewResolver(st, logger),
		issuer,
		logger,
		collector,
	)
	local := auth.NewLocalService(st, issuer, logger)

	factory := activity.NewGitHubClientFactory(githubapi.ClientConfig{
		APIBaseURL: cfg.Activity.APIBaseURL,
		Timeout:    cfg.Activity.RequestTimeout,
		Retry: githubapi.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Backoff: githubapi.BackoffPolicy{
			DefaultBackoff: 2 * time.Second,
			MaxBackoff:     time.Minute,
		},
	})
	fetcher := activity.NewFetcher(factory, activity.Options{
		WindowDays:      cfg.Activity.WindowDays,
		PageSize:        cfg.Activity.PageSize,
		RepoConcurrency: cfg.Activity.RepoConcurrency,
		RequestsPerSec:  cfg.Activity.RequestsPerSec,
	}, logger)
	activitySvc := activity.NewService(st, fetcher, logger, collector)

	handlers := handler.NewHandlers(coordinator, local, activitySvc, st, logger)
	router := handler.NewRouter(handler.RouterConfig{
		Handlers:       handlers,
		Verifier:       issuer,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
		HealthHandler:  health.NewHandler(&statusProvider{store: st, cfg: cfg}),
		FrontendURL:    cfg.Server.FrontendURL,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rootCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.ListenAddr))
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			serverErrCh <- serveErr
		}
		close(serverErrCh)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case serveErr := <-serverErrCh:
		if serveErr != nil {
			return fmt.Errorf("http server failed: %w", serveErr)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func buildStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		return store.NewRedisStore(client, cfg.Store.Namespace), nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func buildProviders(cfg config.Config) map[model.Provider]provider.Client {
	providers := make(map[model.Provider]provider.Client)
	if cfg.Providers.Google.Configured() {
		providers[model.ProviderGoogle] = provider.NewGoogle(provider.GoogleConfig{
			ClientID:     cfg.Providers.Google.ClientID,
			ClientSecret: cfg.Providers.Google.ClientSecret,
			RedirectURL:  cfg.Providers.Google.RedirectURL,
		})
	}
	if cfg.Providers.GitHub.Configured() {
		providers[model.ProviderGitHub] = provider.NewGitHub(provider.GitHubConfig{
			ClientID:     cfg.Providers.GitHub.ClientID,
			ClientSecret: cfg.Providers.GitHub.ClientSecret,
			RedirectURL:  cfg.Providers.GitHub.RedirectURL,
		})
	}
	return providers
}

type statusProvider struct {
	store     store.Store
	cfg       config.Config
	evaluator health.StatusEvaluator
}

func (p *statusProvider) CurrentStatus(ctx context.Context) health.Status {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return p.evaluator.Evaluate(health.Input{
		StoreHealthy:     p.store.Ping(pingCtx) == nil,
		GoogleConfigured: p.cfg.Providers.Google.Configured(),
		GitHubConfigured: p.cfg.Providers.GitHub.Configured(),
	})
}

func logLevel(raw string) zapcore.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
