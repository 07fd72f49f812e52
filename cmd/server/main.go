package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/gateway-console/internal/adapters/ports"
	"github.com/kevin07696/gateway-console/internal/adapters/secrets"
	"github.com/kevin07696/gateway-console/internal/config"
	"github.com/kevin07696/gateway-console/internal/dmn"
	"github.com/kevin07696/gateway-console/internal/flows"
	"github.com/kevin07696/gateway-console/internal/gateway"
	"github.com/kevin07696/gateway-console/internal/handlers"
	"github.com/kevin07696/gateway-console/internal/scenario"
	"github.com/kevin07696/gateway-console/internal/users"
	"github.com/kevin07696/gateway-console/pkg/httpclient"
	"github.com/kevin07696/gateway-console/pkg/observability"
	"github.com/kevin07696/gateway-console/pkg/shutdown"
)

func main() {
	// Load configuration from environment
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	// Initialize logger
	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting gateway console",
		zap.String("version", "0.1.0"),
		zap.String("gateway_base_url", cfg.Gateway.BaseURL),
	)

	// Resolve the default merchant secret key
	defaults, err := resolveCredentials(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to resolve merchant credentials", zap.Error(err))
	}

	// Outbound HTTP client tuned for a single gateway host
	client := httpclient.NewHTTPClient(
		httpclient.GatewayClientConfig(),
		time.Duration(cfg.Gateway.Timeout)*time.Second,
	)

	// Core components
	executor := scenario.NewExecutor(client, gateway.Algorithm(cfg.Gateway.HashAlgorithm), logger)
	store := dmn.NewStore(cfg.DMN.Capacity)
	registry := users.NewRegistry(logger)
	service := flows.NewService(executor, store, registry, logger)
	classifier := dmn.NewClassifier(logger)

	// The gateway needs an externally reachable URL to deliver DMNs to.
	// Surface the configured one so the operator can paste it into the
	// merchant settings.
	if cfg.DMN.PublicURL != "" {
		base := strings.TrimRight(cfg.DMN.PublicURL, "/")
		logger.Info("DMN ingest endpoints",
			zap.String("notification_url", base+"/dmn"),
			zap.String("challenge_callback_url", base+"/dmn/3ds"),
		)
	}

	// HTTP surface
	router := handlers.NewRouter(
		handlers.NewFlowHandler(service, defaults, logger),
		handlers.NewDMNHandler(classifier, store, logger),
		handlers.NewChallengeHandler(logger),
		logger,
	)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Metrics and health
	healthChecker := observability.NewHealthChecker()
	healthChecker.AddCheck("dmn_store", func(ctx context.Context) error {
		store.Len()
		return nil
	})
	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker, logger)
	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	// Graceful shutdown: servers registered last shut down first
	manager := shutdown.NewManager(logger, 30*time.Second)
	manager.RegisterHTTPServer("metrics_server", metricsServer)
	manager.RegisterHTTPServer("api_server", apiServer)

	go func() {
		logger.Info("API server listening",
			zap.String("address", apiServer.Addr),
		)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	manager.WaitForShutdown()
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	if cfg.Development {
		logger, _ := zap.NewDevelopment()
		return logger
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	logger, _ := zapCfg.Build()
	return logger
}

func parseLevel(level string) zapcore.Level {
	switch level {
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

// resolveCredentials builds the default merchant credentials, fetching the
// secret key from the configured backend when it is not set directly.
func resolveCredentials(cfg *config.Config, logger *zap.Logger) (flows.MerchantCredentials, error) {
	creds := flows.MerchantCredentials{
		MerchantID:     cfg.Gateway.MerchantID,
		MerchantSiteID: cfg.Gateway.MerchantSiteID,
		SecretKey:      cfg.Gateway.SecretKey,
		BaseURL:        cfg.Gateway.BaseURL,
	}

	if creds.SecretKey != "" || cfg.Secrets.Backend == "env" && cfg.Secrets.SecretPath == "" {
		return creds, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	manager, err := newSecretManager(ctx, cfg, logger)
	if err != nil {
		return creds, err
	}

	secret, err := manager.GetSecret(ctx, cfg.Secrets.SecretPath)
	if err != nil {
		return creds, fmt.Errorf("fetch merchant secret: %w", err)
	}
	creds.SecretKey = secret.Value

	logger.Info("Merchant secret resolved",
		zap.String("backend", cfg.Secrets.Backend),
		zap.String("version", secret.Version),
	)

	return creds, nil
}

func newSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SecretManager, error) {
	switch cfg.Secrets.Backend {
	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress)
		vaultCfg.Token = cfg.Secrets.VaultToken
		return secrets.NewVaultAdapter(ctx, vaultCfg, logger)

	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion)
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	default:
		return secrets.NewLocalSecretManager(cfg.Secrets.LocalBasePath, logger), nil
	}
}
