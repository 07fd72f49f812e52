package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value    string            // The secret value (e.g., merchant secret key)
	Version  string            // Secret version identifier
	Metadata map[string]string // Additional secret metadata
}

// SecretManager defines the port for resolving merchant credentials from a
// secret management backend. This console only ever reads secrets; rotation
// and writes belong to the team owning the backend.
//
// Path format depends on implementation:
//   - local: file path relative to the configured base directory
//   - Vault: "gateway-console/merchants/{merchant_id}/secret-key"
//   - AWS:   secret name or full ARN
type SecretManager interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
