// File: internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cycle-cli/internal/config"
)

// NewClient creates the ModelClient for the configured provider.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (ModelClient, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		client, err := NewAnthropicClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: '%s'. Supported: [%s]", ErrUnsupportedProvider, cfg.Provider, config.ProviderAnthropic)
	}
}
