package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/apperrors"
	"github.com/prism-bi/prism-gateway/pkg/config"
)

// CredentialSource records which key was selected for a request. It is
// safe to log and to return to clients; the key itself is not.
type CredentialSource string

const (
	CredentialUser   CredentialSource = "user"
	CredentialServer CredentialSource = "server"
)

// ClientFactory resolves a per-request client and credential source.
// Use this interface for dependency injection and testing.
type ClientFactory interface {
	// ClientFor selects the caller's key when present, else the server's
	// shared key. With neither it fails fast with apperrors.ErrNoCredential
	// before any network activity.
	ClientFor(userKey string) (Client, CredentialSource, error)

	// Model returns the configured model name.
	Model() string
}

// Factory builds provider clients from the gateway's AI configuration,
// resolved once per request.
type Factory struct {
	cfg    *config.AIConfig
	logger *zap.Logger
}

// NewFactory creates a factory over the loaded AI configuration.
func NewFactory(cfg *config.AIConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// ClientFor implements ClientFactory.
func (f *Factory) ClientFor(userKey string) (Client, CredentialSource, error) {
	key := userKey
	source := CredentialUser
	if key == "" {
		key = f.cfg.APIKey
		source = CredentialServer
	}
	if key == "" {
		return nil, "", apperrors.ErrNoCredential
	}

	clientCfg := &Config{
		BaseURL: f.cfg.BaseURL,
		Model:   f.cfg.Model,
		APIKey:  key,
	}

	var (
		client Client
		err    error
	)
	switch f.cfg.Provider {
	case config.ProviderAnthropic:
		client, err = NewAnthropicClient(clientCfg, f.logger)
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(clientCfg, f.logger)
	default:
		return nil, "", fmt.Errorf("unknown provider %q", f.cfg.Provider)
	}
	if err != nil {
		return nil, "", fmt.Errorf("create %s client: %w", f.cfg.Provider, err)
	}

	return client, source, nil
}

// Model implements ClientFactory.
func (f *Factory) Model() string {
	return f.cfg.Model
}

var _ ClientFactory = (*Factory)(nil)
