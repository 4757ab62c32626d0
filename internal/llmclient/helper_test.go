package llmclient

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/cycle-cli/internal/config"
)

// setupTestLogger is a helper to create a zap logger for testing with an observer.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// getValidLLMConfig returns a valid LLMConfig with a retry schedule short
// enough for tests.
func getValidLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:   config.ProviderAnthropic,
		APIKey:     "test-api-key",
		Model:      "claude-3-5-sonnet-20241022",
		APITimeout: 5 * time.Second,
		MaxTokens:  1024,
		Betas:      []string{"computer-use-2024-10-22"},
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     4 * time.Millisecond,
			Multiplier:      2,
		},
	}
}
