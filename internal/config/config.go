package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Secrets SecretsConfig
	DMN     DMNConfig
	Logger  LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
}

// GatewayConfig holds the default sandbox gateway credentials. Every flow
// request may override them; these are the fallback for requests that omit
// credentials.
type GatewayConfig struct {
	BaseURL        string // Base URL for the gateway REST API (e.g., https://ppp-test.safecharge.com/ppp/api/v1)
	MerchantID     string
	MerchantSiteID string
	SecretKey      string
	Timeout        int    // Request timeout in seconds (default: 30)
	HashAlgorithm  string // SHA256 (default) or SHA1
}

// SecretsConfig selects how the merchant secret key is resolved at startup
type SecretsConfig struct {
	Backend       string // env (default), vault, or aws
	VaultAddress  string
	VaultToken    string
	AWSRegion     string
	SecretPath    string // vault path or AWS secret name holding the merchant secret
	LocalBasePath string // directory for file-based secrets when Backend is env
}

// DMNConfig holds notification log settings
type DMNConfig struct {
	Capacity  int
	PublicURL string // externally reachable base URL advertised to the gateway for DMN delivery
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Gateway: GatewayConfig{
			BaseURL:        getEnv("GATEWAY_BASE_URL", "https://ppp-test.safecharge.com/ppp/api/v1"),
			MerchantID:     getEnv("GATEWAY_MERCHANT_ID", ""),
			MerchantSiteID: getEnv("GATEWAY_MERCHANT_SITE_ID", ""),
			SecretKey:      getEnv("GATEWAY_SECRET_KEY", ""),
			Timeout:        getEnvAsInt("GATEWAY_TIMEOUT", 30),
			HashAlgorithm:  strings.ToUpper(getEnv("GATEWAY_HASH_ALGORITHM", "SHA256")),
		},
		Secrets: SecretsConfig{
			Backend:       strings.ToLower(getEnv("SECRETS_BACKEND", "env")),
			VaultAddress:  getEnv("VAULT_ADDR", ""),
			VaultToken:    getEnv("VAULT_TOKEN", ""),
			AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
			SecretPath:    getEnv("SECRETS_PATH", ""),
			LocalBasePath: getEnv("SECRETS_LOCAL_PATH", ""),
		},
		DMN: DMNConfig{
			Capacity:  getEnvAsInt("DMN_CAPACITY", 100),
			PublicURL: getEnv("DMN_PUBLIC_URL", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Gateway.HashAlgorithm != "SHA256" && cfg.Gateway.HashAlgorithm != "SHA1" {
		return nil, fmt.Errorf("GATEWAY_HASH_ALGORITHM must be SHA256 or SHA1, got %q", cfg.Gateway.HashAlgorithm)
	}
	switch cfg.Secrets.Backend {
	case "env", "vault", "aws":
	default:
		return nil, fmt.Errorf("SECRETS_BACKEND must be env, vault, or aws, got %q", cfg.Secrets.Backend)
	}
	if cfg.Secrets.Backend == "vault" && cfg.Secrets.VaultAddress == "" {
		return nil, fmt.Errorf("VAULT_ADDR is required when SECRETS_BACKEND is vault")
	}
	if cfg.Secrets.Backend != "env" && cfg.Secrets.SecretPath == "" {
		return nil, fmt.Errorf("SECRETS_PATH is required when SECRETS_BACKEND is %s", cfg.Secrets.Backend)
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
