// File: internal/llmclient/client.go
package llmclient

import (
	"context"
	"errors"

	"github.com/xkilldash9x/cycle-cli/internal/conversation"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
)

var (
	// ErrProtocol marks a response the engine cannot act on. It is never retried.
	ErrProtocol = errors.New("model protocol error")
	// ErrUnsupportedProvider is returned by NewClient for an unknown provider.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// Request is one call to the model.
type Request struct {
	Model     string
	System    string
	Messages  []conversation.Message
	Tools     []tools.Spec
	MaxTokens int
}

// Usage reports the tokens billed for one call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is the model's reply, already validated.
type Response struct {
	Content    []conversation.Block
	StopReason string
	Usage      Usage
}

// ModelClient is the single request/response boundary to the model service.
// Implementations own their retry behavior.
type ModelClient interface {
	CreateMessage(ctx context.Context, req Request) (*Response, error)
}
