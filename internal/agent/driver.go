// File: internal/agent/driver.go
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cycle-cli/internal/computer"
	"github.com/xkilldash9x/cycle-cli/internal/config"
	"github.com/xkilldash9x/cycle-cli/internal/conversation"
	"github.com/xkilldash9x/cycle-cli/internal/llmclient"
	"github.com/xkilldash9x/cycle-cli/internal/prompts"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
)

// State is the driver's position in its loop.
type State string

const (
	StateAwaitingModel    State = "AWAITING_MODEL"    // A model call is about to be made or is in flight.
	StateDispatchingTools State = "DISPATCHING_TOOLS" // The tool calls of the latest response are running.
	StateTerminated       State = "TERMINATED"        // The run is over, successfully or not.
)

// screenshotIDLayout stamps the id of an injected screenshot call.
const screenshotIDLayout = "20060102150405"

// ErrIterationLimit is returned when the run reaches Options.MaxIterations
// model calls without the model finishing.
var ErrIterationLimit = errors.New("iteration limit reached")

// Dispatcher runs tool calls by name. *tools.Collection implements it.
type Dispatcher interface {
	Specs() []tools.Spec
	Run(ctx context.Context, name string, input json.RawMessage) (tools.Result, error)
}

// Hydrator renders prompt templates. *prompts.Hydrator implements it.
type Hydrator interface {
	Hydrate(name string, typ prompts.Type, data map[string]any) (string, error)
}

// Options tunes a Driver.
type Options struct {
	Model     string
	MaxTokens int
	// ImagesToKeep caps the screenshots kept in the history. Zero keeps none;
	// a negative value disables pruning.
	ImagesToKeep   int
	InitialMessage string
	// MaxIterations caps model calls. Zero means unlimited.
	MaxIterations int
	// Architecture is reported to the model; runtime.GOARCH when empty.
	Architecture string
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// OptionsFromConfig maps the llm and automation sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		ImagesToKeep:   cfg.Automation.ImagesToKeep,
		InitialMessage: cfg.Automation.InitialMessage,
		MaxIterations:  cfg.Automation.MaxIterations,
	}
}

// Report summarizes a finished run.
type Report struct {
	RunID string
	// ModelCalls counts every request sent to the model.
	ModelCalls int
	// Iterations counts the responses that requested at least one tool.
	Iterations int
	ToolCalls  int
	// FinalText is the text of the response that ended the run.
	FinalText string
	Messages  []conversation.Message
}

// Driver replays a workflow by looping between the model and the tools until
// the model stops requesting tools.
type Driver struct {
	baseLogger *zap.Logger
	logger     *zap.Logger
	client     llmclient.ModelClient
	tools      Dispatcher
	hydrator   Hydrator
	store      ScreenshotStore
	opts       Options

	runID   string
	state   State
	conv    *conversation.Conversation
	seenIDs map[string]struct{}
}

// NewDriver wires a driver. store may be nil, in which case screenshots are
// not persisted.
func NewDriver(logger *zap.Logger, client llmclient.ModelClient, dispatcher Dispatcher, hydrator Hydrator, store ScreenshotStore, opts Options) *Driver {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Architecture == "" {
		opts.Architecture = runtime.GOARCH
	}
	d := &Driver{
		baseLogger: logger.Named("agent.driver"),
		client:     client,
		tools:      dispatcher,
		hydrator:   hydrator,
		store:      store,
		opts:       opts,
	}
	d.reset()
	return d
}

// reset clears all per-run state and assigns a new run id.
func (d *Driver) reset() {
	d.runID = uuid.NewString()
	d.logger = d.baseLogger.With(zap.String("run_id", d.runID))
	d.state = StateAwaitingModel
	d.conv = conversation.New(conversation.UserText(d.opts.InitialMessage))
	d.seenIDs = make(map[string]struct{})
}

// State returns the current loop state.
func (d *Driver) State() State { return d.state }

// Run drives one replay of transcript, adapted by instruction. It returns when
// a model response contains no tool calls, or with an error on the first fatal
// fault. A failed run cannot be resumed; calling Run again starts a new run
// with its own id and history. Run is not safe for concurrent use.
func (d *Driver) Run(ctx context.Context, transcript, instruction string) (*Report, error) {
	d.reset()
	report := &Report{RunID: d.runID}
	defer func() { report.Messages = d.conv.Messages() }()

	d.logger.Info("Starting workflow replay",
		zap.String("model", d.opts.Model),
		zap.Int("images_to_keep", d.opts.ImagesToKeep),
		zap.Int("max_iterations", d.opts.MaxIterations))

	for {
		if d.opts.MaxIterations > 0 && report.ModelCalls >= d.opts.MaxIterations {
			d.terminate("iteration limit")
			return report, fmt.Errorf("%w after %d model calls", ErrIterationLimit, report.ModelCalls)
		}
		d.setState(StateAwaitingModel)

		if removed := d.conv.PruneImages(d.opts.ImagesToKeep); removed > 0 {
			d.logger.Debug("Pruned screenshots from history", zap.Int("removed", removed))
		}

		system, err := d.systemPrompt(transcript, instruction)
		if err != nil {
			d.terminate("prompt hydration failed")
			return report, err
		}

		resp, err := d.client.CreateMessage(ctx, llmclient.Request{
			Model:     d.opts.Model,
			System:    system,
			Messages:  d.conv.Messages(),
			Tools:     d.tools.Specs(),
			MaxTokens: d.opts.MaxTokens,
		})
		report.ModelCalls++
		if err != nil {
			d.terminate("model call failed")
			return report, fmt.Errorf("model call failed: %w", err)
		}

		content := d.groundWithScreenshot(resp.Content)
		d.conv.Append(conversation.Message{Role: conversation.RoleAssistant, Content: content})

		d.setState(StateDispatchingTools)
		results, err := d.dispatch(ctx, content)
		if err != nil {
			d.terminate("tool dispatch failed")
			return report, err
		}

		if len(results) == 0 {
			report.FinalText = joinText(content)
			d.terminate("model finished")
			return report, nil
		}

		report.Iterations++
		report.ToolCalls += len(results)
		d.conv.Append(conversation.Message{Role: conversation.RoleUser, Content: results})
	}
}

func (d *Driver) systemPrompt(transcript, instruction string) (string, error) {
	system, err := d.hydrator.Hydrate(prompts.ComputerUse, prompts.TypeSystem, map[string]any{
		prompts.KeyArchitecture:         d.opts.Architecture,
		prompts.KeyDatetime:             d.opts.Now().Format(prompts.DatetimeLayout),
		prompts.KeyWorkflowInstructions: transcript,
		prompts.KeyUserInstruction:      instruction,
	})
	if err != nil {
		return "", fmt.Errorf("failed to hydrate system prompt: %w", err)
	}
	return system, nil
}

// groundWithScreenshot appends a screenshot call when the response ends in a
// tool call that is not itself a screenshot, so that the model always sees
// the effect of its last action.
func (d *Driver) groundWithScreenshot(content []conversation.Block) []conversation.Block {
	for _, b := range content {
		if b.Type == conversation.BlockToolUse {
			d.seenIDs[b.ID] = struct{}{}
		}
	}
	if len(content) == 0 {
		return content
	}
	last := content[len(content)-1]
	if last.Type != conversation.BlockToolUse || last.Action() == string(computer.ActionScreenshot) {
		return content
	}

	id := "screenshot_" + d.opts.Now().Format(screenshotIDLayout)
	if _, taken := d.seenIDs[id]; taken {
		id = id + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	d.seenIDs[id] = struct{}{}

	d.logger.Debug("Injecting screenshot after final action",
		zap.String("after", last.ID),
		zap.String("tool_use_id", id))
	input := json.RawMessage(fmt.Sprintf(`{"action":%q}`, computer.ActionScreenshot))
	return append(content[:len(content):len(content)], conversation.ToolUseBlock(id, computer.ToolName, input))
}

// dispatch runs every tool call of a response in order and returns the
// matching tool_result blocks.
func (d *Driver) dispatch(ctx context.Context, content []conversation.Block) ([]conversation.Block, error) {
	var results []conversation.Block
	for _, b := range content {
		switch b.Type {
		case conversation.BlockText:
			d.logger.Info("Assistant", zap.String("text", b.Text))
		case conversation.BlockToolUse:
			res, err := d.tools.Run(ctx, b.Name, b.Input)
			if err != nil {
				return nil, fmt.Errorf("tool %s failed on call %s: %w", b.Name, b.ID, err)
			}
			results = append(results, MakeToolResultBlock(res, b.ID))
			d.report(b.ID, res)
		}
	}
	return results, nil
}

// report logs a tool result and persists its screenshot. Persistence
// failures never end the run.
func (d *Driver) report(toolUseID string, res tools.Result) {
	if res.Output != "" {
		d.logger.Info("Tool output", zap.String("tool_use_id", toolUseID), zap.String("output", res.Output))
	}
	if res.IsFailure() {
		d.logger.Info("Tool error", zap.String("tool_use_id", toolUseID), zap.String("error", res.Error))
	}
	if !res.HasImage() || d.store == nil {
		return
	}
	name, err := d.store.Save(toolUseID, res.Image)
	if err != nil {
		d.logger.Warn("Failed to save screenshot", zap.String("tool_use_id", toolUseID), zap.Error(err))
		return
	}
	d.logger.Info("Took screenshot", zap.String("file", name))
}

func (d *Driver) setState(s State) {
	if d.state == s {
		return
	}
	d.logger.Debug("State transition", zap.String("from", string(d.state)), zap.String("to", string(s)))
	d.state = s
}

func (d *Driver) terminate(reason string) {
	d.setState(StateTerminated)
	d.logger.Info("Workflow replay terminated", zap.String("reason", reason))
}

func joinText(content []conversation.Block) string {
	var parts []string
	for _, b := range content {
		if b.Type == conversation.BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
