package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kevin07696/gateway-console/internal/adapters/ports"
)

// localSecretManager resolves secrets from environment variables, or from
// files under a base directory when one is configured.
// WARNING: This is for development only. Use AWS Secrets Manager or Vault in production.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager creates a local secret manager. With an empty
// basePath, paths are treated as environment variable names (slashes and
// dashes mapped to underscores, uppercased).
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManager {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

// GetSecret retrieves a secret from the environment or local filesystem
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	if m.basePath == "" {
		return m.fromEnv(secretPath)
	}

	filePath := filepath.Join(m.basePath, secretPath)

	m.logger.Debug("Reading secret from filesystem",
		zap.String("path", secretPath),
	)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secret not found: %s", secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	// Support both plain text and JSON format
	var secretData struct {
		Value string            `json:"value"`
		Tags  map[string]string `json:"tags"`
	}
	if err := json.Unmarshal(data, &secretData); err == nil && secretData.Value != "" {
		return &ports.Secret{
			Value:    secretData.Value,
			Version:  "v1",
			Metadata: secretData.Tags,
		}, nil
	}

	return &ports.Secret{
		Value:   strings.TrimSpace(string(data)),
		Version: "v1",
	}, nil
}

func (m *localSecretManager) fromEnv(secretPath string) (*ports.Secret, error) {
	name := strings.ToUpper(strings.NewReplacer("/", "_", "-", "_").Replace(secretPath))

	value := os.Getenv(name)
	if value == "" {
		return nil, fmt.Errorf("secret not found in environment: %s", name)
	}

	return &ports.Secret{
		Value:   value,
		Version: "v1",
		Metadata: map[string]string{
			"source": "env",
			"name":   name,
		},
	}, nil
}
