// File: internal/llmclient/anthropic_client.go
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/cycle-cli/internal/config"
	"github.com/xkilldash9x/cycle-cli/internal/conversation"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
)

// computerToolType is the provider-defined computer use tool version.
const computerToolType = "computer_20241022"

// AnthropicClient implements ModelClient on the Anthropic beta Messages API.
type AnthropicClient struct {
	client  anthropic.Client
	config  config.LLMConfig
	retry   RetryPolicy
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ ModelClient = (*AnthropicClient)(nil)

// NewAnthropicClient builds the client. The SDK's own retries are disabled so
// that the RetryPolicy derived from cfg.Retry is the only one in effect.
func NewAnthropicClient(cfg config.LLMConfig, logger *zap.Logger, extra ...option.RequestOption) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.APITimeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}))
	}
	opts = append(opts, extra...)

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(opts...),
		config:  cfg,
		retry:   RetryPolicyFromConfig(cfg.Retry),
		limiter: limiter,
		logger:  logger.Named("llm_client.anthropic"),
	}, nil
}

// CreateMessage sends the request, retrying transient failures.
func (c *AnthropicClient) CreateMessage(ctx context.Context, req Request) (*Response, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Transient error calling the model, retrying...",
			zap.Error(err),
			zap.Duration("wait", wait))
	}

	return Do(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		startTime := time.Now()
		msg, err := c.client.Beta.Messages.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("anthropic request failed: %w", err)
		}

		resp, err := convertResponse(msg)
		if err != nil {
			c.logger.Error("Model returned an unusable response", zap.Error(err))
			return nil, err
		}

		c.logger.Info("LLM generation complete (Anthropic)",
			zap.Duration("duration", time.Since(startTime)),
			zap.String("stop_reason", resp.StopReason),
			zap.Int64("input_tokens", resp.Usage.InputTokens),
			zap.Int64("output_tokens", resp.Usage.OutputTokens))
		if ce := c.logger.Check(zap.DebugLevel, "Model response"); ce != nil {
			content, _ := jsoniter.MarshalToString(resp.Content)
			ce.Write(zap.String("content", content))
		}
		return resp, nil
	}, notify)
}

func (c *AnthropicClient) buildParams(req Request) (anthropic.BetaMessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return anthropic.BetaMessageNewParams{}, err
	}

	params := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
		Tools:     convertTools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.BetaTextBlockParam{{Text: req.System}}
	}
	for _, beta := range c.config.Betas {
		params.Betas = append(params.Betas, anthropic.AnthropicBeta(beta))
	}
	return params, nil
}

// -- Request Conversion --

func convertMessages(msgs []conversation.Message) ([]anthropic.BetaMessageParam, error) {
	out := make([]anthropic.BetaMessageParam, 0, len(msgs))
	for i, m := range msgs {
		blocks := make([]anthropic.BetaContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			block, err := convertBlock(b)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			blocks = append(blocks, block)
		}

		role := anthropic.BetaMessageParamRoleUser
		if m.Role == conversation.RoleAssistant {
			role = anthropic.BetaMessageParamRoleAssistant
		}
		out = append(out, anthropic.BetaMessageParam{Role: role, Content: blocks})
	}
	return out, nil
}

func convertBlock(b conversation.Block) (anthropic.BetaContentBlockParamUnion, error) {
	switch b.Type {
	case conversation.BlockText:
		return anthropic.NewBetaTextBlock(b.Text), nil
	case conversation.BlockToolUse:
		input := b.Input
		if len(input) == 0 {
			input = json.RawMessage(`{}`)
		}
		return anthropic.NewBetaToolUseBlock(b.ID, input, b.Name), nil
	case conversation.BlockImage:
		return anthropic.BetaContentBlockParamUnion{OfImage: convertImage(b.Source)}, nil
	case conversation.BlockToolResult:
		result := anthropic.BetaToolResultBlockParam{ToolUseID: b.ToolUseID}
		if b.IsError {
			result.IsError = anthropic.Bool(true)
		}
		for _, inner := range b.Content {
			switch inner.Type {
			case conversation.BlockText:
				result.Content = append(result.Content, anthropic.BetaToolResultBlockParamContentUnion{
					OfText: &anthropic.BetaTextBlockParam{Text: inner.Text},
				})
			case conversation.BlockImage:
				result.Content = append(result.Content, anthropic.BetaToolResultBlockParamContentUnion{
					OfImage: convertImage(inner.Source),
				})
			default:
				return anthropic.BetaContentBlockParamUnion{}, fmt.Errorf("unsupported block %q inside tool_result", inner.Type)
			}
		}
		return anthropic.BetaContentBlockParamUnion{OfToolResult: &result}, nil
	default:
		return anthropic.BetaContentBlockParamUnion{}, fmt.Errorf("unsupported content block %q", b.Type)
	}
}

func convertImage(src *conversation.ImageSource) *anthropic.BetaImageBlockParam {
	var data string
	if src != nil {
		data = src.Data
	}
	return &anthropic.BetaImageBlockParam{
		Source: anthropic.BetaImageBlockParamSourceUnion{
			OfBase64: &anthropic.BetaBase64ImageSourceParam{
				Data:      data,
				MediaType: anthropic.BetaBase64ImageSourceMediaTypeImagePNG,
			},
		},
	}
}

func convertTools(specs []tools.Spec) []anthropic.BetaToolUnionParam {
	out := make([]anthropic.BetaToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		if spec.Type == computerToolType {
			tool := anthropic.BetaToolUnionParamOfComputerUseTool20241022(int64(spec.DisplayHeightPx), int64(spec.DisplayWidthPx))
			if spec.DisplayNumber > 0 {
				tool.OfComputerUseTool20241022.DisplayNumber = anthropic.Int(int64(spec.DisplayNumber))
			}
			out = append(out, tool)
			continue
		}

		custom := anthropic.BetaToolParam{
			Name: spec.Name,
			InputSchema: anthropic.BetaToolInputSchemaParam{
				Properties: spec.InputSchema["properties"],
			},
		}
		if required, ok := spec.InputSchema["required"].([]string); ok {
			custom.InputSchema.Required = required
		}
		if spec.Description != "" {
			custom.Description = anthropic.String(spec.Description)
		}
		out = append(out, anthropic.BetaToolUnionParam{OfTool: &custom})
	}
	return out
}

// -- Response Conversion --

// convertResponse maps the reply into conversation blocks and rejects
// anything the driver cannot act on.
func convertResponse(msg *anthropic.BetaMessage) (*Response, error) {
	if msg == nil || len(msg.Content) == 0 {
		return nil, fmt.Errorf("%w: response has no content blocks", ErrProtocol)
	}

	blocks := make([]conversation.Block, 0, len(msg.Content))
	for i, b := range msg.Content {
		switch b.Type {
		case "text":
			blocks = append(blocks, conversation.TextBlock(b.Text))
		case "tool_use":
			if b.ID == "" || b.Name == "" {
				return nil, fmt.Errorf("%w: tool_use block %d lacks an id or name", ErrProtocol, i)
			}
			input, err := toolInput(b.Input)
			if err != nil {
				return nil, fmt.Errorf("%w: tool_use block %s: %v", ErrProtocol, b.ID, err)
			}
			blocks = append(blocks, conversation.ToolUseBlock(b.ID, b.Name, input))
		default:
			// Thinking and server-side blocks are not replayed.
		}
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: response has no usable content blocks", ErrProtocol)
	}

	return &Response{
		Content:    blocks,
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

// toolInput re-encodes a tool_use input and checks that it is a JSON object.
// A missing input becomes an empty object.
func toolInput(v any) (json.RawMessage, error) {
	raw, err := jsoniter.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("malformed input: %w", err)
	}
	switch jsoniter.Get(raw).ValueType() {
	case jsoniter.NilValue:
		return json.RawMessage(`{}`), nil
	case jsoniter.ObjectValue:
		return raw, nil
	default:
		return nil, fmt.Errorf("malformed input: expected an object, got %s", raw)
	}
}
