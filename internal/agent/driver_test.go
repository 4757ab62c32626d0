// File: internal/agent/driver_test.go
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/cycle-cli/internal/conversation"
	"github.com/xkilldash9x/cycle-cli/internal/llmclient"
	"github.com/xkilldash9x/cycle-cli/internal/mocks"
	"github.com/xkilldash9x/cycle-cli/internal/prompts"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
)

const fakePNG = "aGVsbG8="

var fixedNow = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

// -- Test Fixtures --

// recordingComputer answers like the computer tool and records the actions
// it was asked to perform.
type recordingComputer struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingComputer) Name() string { return "computer" }

func (r *recordingComputer) Spec() tools.Spec {
	return tools.Spec{Name: "computer", Type: "computer_20241022", DisplayWidthPx: 1280, DisplayHeightPx: 720}
}

func (r *recordingComputer) Invoke(_ context.Context, input json.RawMessage) (tools.Outcome, error) {
	var in struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return tools.Outcome{}, err
	}
	r.mu.Lock()
	r.actions = append(r.actions, in.Action)
	r.mu.Unlock()

	if in.Action == "screenshot" {
		return tools.Ok(tools.Result{Image: fakePNG}), nil
	}
	return tools.Ok(tools.Result{Output: in.Action + " performed."}), nil
}

// memoryStore keeps saved screenshots in memory.
type memoryStore struct {
	saved []string
}

func (m *memoryStore) Save(toolUseID, _ string) (string, error) {
	m.saved = append(m.saved, toolUseID)
	return "screenshot_" + toolUseID + ".png", nil
}

func toolUse(id, action string) conversation.Block {
	return conversation.ToolUseBlock(id, "computer", json.RawMessage(`{"action":"`+action+`"}`))
}

func respond(blocks ...conversation.Block) *llmclient.Response {
	return &llmclient.Response{Content: blocks, StopReason: "tool_use"}
}

type driverFixture struct {
	client   *mocks.MockModelClient
	computer *recordingComputer
	store    *memoryStore
	logs     *observer.ObservedLogs
	driver   *Driver
}

func newDriverFixture(t *testing.T, opts Options, extra ...tools.Tool) *driverFixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	computer := &recordingComputer{}
	collection, err := tools.NewCollection(logger, append([]tools.Tool{computer}, extra...)...)
	require.NoError(t, err)

	hydrator, err := prompts.NewHydrator("", logger)
	require.NoError(t, err)

	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	if opts.InitialMessage == "" {
		opts.InitialMessage = "Repeat the workflow considering the user instruction."
	}

	client := new(mocks.MockModelClient)
	store := &memoryStore{}
	return &driverFixture{
		client:   client,
		computer: computer,
		store:    store,
		logs:     logs,
		driver:   NewDriver(logger, client, collection, hydrator, store, opts),
	}
}

func (f *driverFixture) expect(responses ...*llmclient.Response) {
	for _, r := range responses {
		f.client.On("CreateMessage", mock.Anything, mock.Anything).Return(r, nil).Once()
	}
}

func (f *driverFixture) request(t *testing.T, i int) llmclient.Request {
	t.Helper()
	require.Greater(t, len(f.client.Calls), i)
	return f.client.Calls[i].Arguments.Get(1).(llmclient.Request)
}

func countImages(msgs []conversation.Message) int {
	n := 0
	for _, m := range msgs {
		for _, b := range m.Content {
			for _, inner := range b.Content {
				if inner.Type == conversation.BlockImage {
					n++
				}
			}
		}
	}
	return n
}

// -- Test Cases --

func TestDriver_Run_EndToEnd(t *testing.T) {
	f := newDriverFixture(t, Options{Model: "claude-3-5-sonnet-20241022", MaxTokens: 4096, ImagesToKeep: 3})
	f.expect(
		respond(conversation.ToolUseBlock("toolu_1", "computer", json.RawMessage(`{"action":"left_click","coordinate":[100,100]}`))),
		respond(toolUse("toolu_2", "screenshot")),
		respond(conversation.TextBlock("The workflow is complete.")),
	)

	report, err := f.driver.Run(context.Background(), "Click the Save button.", "Save twice.")
	require.NoError(t, err)
	f.client.AssertExpectations(t)

	assert.Equal(t, StateTerminated, f.driver.State())
	assert.Equal(t, 2, report.Iterations)
	assert.Equal(t, 3, report.ModelCalls)
	assert.Equal(t, 3, report.ToolCalls)
	assert.Equal(t, "The workflow is complete.", report.FinalText)
	assert.NotEmpty(t, report.RunID)

	// The forced screenshot follows the first response only.
	assert.Equal(t, []string{"left_click", "screenshot", "screenshot"}, f.computer.actions)

	msgs := report.Messages
	require.Len(t, msgs, 6)
	assert.Equal(t, conversation.UserText("Repeat the workflow considering the user instruction."), msgs[0])

	first := msgs[1]
	assert.Equal(t, conversation.RoleAssistant, first.Role)
	require.Len(t, first.Content, 2)
	assert.Equal(t, "screenshot_20261019120000", first.Content[1].ID)
	assert.Equal(t, "computer", first.Content[1].Name)
	assert.Equal(t, "screenshot", first.Content[1].Action())

	results := msgs[2]
	assert.Equal(t, conversation.RoleUser, results.Role)
	require.Len(t, results.Content, 2)
	assert.Equal(t, "toolu_1", results.Content[0].ToolUseID)
	assert.Equal(t, "screenshot_20261019120000", results.Content[1].ToolUseID)
	assert.Equal(t, conversation.BlockImage, results.Content[1].Content[0].Type)

	require.Len(t, msgs[3].Content, 1, "a response ending in a screenshot is not augmented")
	assert.Equal(t, "toolu_2", msgs[4].Content[0].ToolUseID)
	assert.Equal(t, conversation.RoleAssistant, msgs[5].Role)

	assert.Equal(t, []string{"screenshot_20261019120000", "toolu_2"}, f.store.saved)

	// Every request carries the re-hydrated prompt, the tools and the options.
	for i := 0; i < 3; i++ {
		req := f.request(t, i)
		assert.Equal(t, "claude-3-5-sonnet-20241022", req.Model)
		assert.Equal(t, 4096, req.MaxTokens)
		assert.Contains(t, req.System, "Click the Save button.")
		assert.Contains(t, req.System, "Save twice.")
		assert.Contains(t, req.System, "Monday, October 19, 2026")
		require.Len(t, req.Tools, 1)
		assert.Equal(t, 1280, req.Tools[0].DisplayWidthPx)
	}

	assert.Equal(t, 1, f.logs.FilterMessage("Assistant").Len())
	assert.Equal(t, 2, f.logs.FilterMessage("Took screenshot").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("Tool output").Len())
}

func TestDriver_Run_PrunesImagesEveryIteration(t *testing.T) {
	f := newDriverFixture(t, Options{ImagesToKeep: 1})
	f.expect(
		respond(toolUse("toolu_1", "screenshot")),
		respond(toolUse("toolu_2", "screenshot")),
		respond(toolUse("toolu_3", "screenshot")),
		respond(conversation.TextBlock("Done.")),
	)

	report, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Iterations)
	assert.Equal(t, 1, countImages(report.Messages))
	// The surviving image is the newest one.
	assert.Equal(t, conversation.BlockImage, report.Messages[6].Content[0].Content[0].Type)
	assert.Empty(t, report.Messages[2].Content[0].Content)
}

func TestDriver_Run_ScreenshotIDCollision(t *testing.T) {
	f := newDriverFixture(t, Options{ImagesToKeep: 3})
	f.expect(
		respond(toolUse("toolu_1", "left_click")),
		respond(toolUse("toolu_2", "right_click")),
		respond(conversation.TextBlock("Done.")),
	)

	report, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.NoError(t, err)

	firstID := report.Messages[1].Content[1].ID
	secondID := report.Messages[3].Content[1].ID
	assert.Equal(t, "screenshot_20261019120000", firstID)
	assert.True(t, strings.HasPrefix(secondID, "screenshot_20261019120000_"), secondID)
	assert.Len(t, secondID, len(firstID)+9)
}

func TestDriver_Run_InjectsAfterAnyTrailingToolUse(t *testing.T) {
	f := newDriverFixture(t, Options{ImagesToKeep: 3})
	f.expect(
		// Only the last block decides; a screenshot earlier in the response does not count.
		respond(toolUse("toolu_1", "screenshot"), conversation.TextBlock("Typing now."), toolUse("toolu_2", "type")),
		respond(toolUse("toolu_3", "left_click"), conversation.TextBlock("Clicked.")),
		respond(conversation.TextBlock("Done.")),
	)

	report, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.NoError(t, err)

	assert.Len(t, report.Messages[1].Content, 4)
	assert.Len(t, report.Messages[3].Content, 2, "a trailing text block suppresses injection")
}

func TestDriver_Run_UnknownToolIsReported(t *testing.T) {
	f := newDriverFixture(t, Options{ImagesToKeep: 3})
	f.expect(
		respond(conversation.ToolUseBlock("toolu_1", "bash", json.RawMessage(`{"command":"ls"}`))),
		respond(conversation.TextBlock("Done.")),
	)

	report, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.NoError(t, err)

	results := report.Messages[2].Content
	require.Len(t, results, 2)
	assert.True(t, results[0].IsError)
	assert.Equal(t, "Tool bash is invalid", results[0].Content[0].Text)
	assert.Equal(t, 1, f.logs.FilterMessage("Tool error").Len())
}

func TestDriver_Run_ModelFailureIsFatal(t *testing.T) {
	f := newDriverFixture(t, Options{})
	apiErr := errors.New("giving up after 3 attempts: overloaded")
	f.client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, apiErr).Once()

	report, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiErr)
	assert.Equal(t, 1, report.ModelCalls)
	assert.Equal(t, StateTerminated, f.driver.State())
	assert.Len(t, report.Messages, 1)
}

func TestDriver_Run_ToolErrorPropagates(t *testing.T) {
	crash := errors.New("display connection lost")
	broken := new(mocks.MockTool)
	broken.On("Name").Return("editor")
	broken.On("Spec").Return(tools.Spec{Name: "editor"})
	broken.On("Invoke", mock.Anything, mock.Anything).Return(tools.Outcome{}, crash)

	f := newDriverFixture(t, Options{}, broken)
	f.expect(respond(conversation.ToolUseBlock("toolu_1", "editor", json.RawMessage(`{"path":"a.txt"}`))))

	_, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.Error(t, err)
	assert.ErrorIs(t, err, crash)
	assert.Contains(t, err.Error(), "toolu_1")
	assert.Equal(t, StateTerminated, f.driver.State())
	broken.AssertExpectations(t)
}

func TestDriver_Run_PersistenceFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	collection, err := tools.NewCollection(logger, &recordingComputer{})
	require.NoError(t, err)
	hydrator, err := prompts.NewHydrator("", logger)
	require.NoError(t, err)

	store := new(mocks.MockScreenshotStore)
	store.On("Save", "toolu_1", fakePNG).Return("", errors.New("disk full")).Once()

	client := new(mocks.MockModelClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(respond(toolUse("toolu_1", "screenshot")), nil).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(respond(conversation.TextBlock("Done.")), nil).Once()

	d := NewDriver(logger, client, collection, hydrator, store, Options{ImagesToKeep: 3})
	report, err := d.Run(context.Background(), "transcript", "instruction")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Iterations)

	warnings := logs.FilterMessage("Failed to save screenshot").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "toolu_1", warnings[0].ContextMap()["tool_use_id"])
	store.AssertExpectations(t)
}

func TestDriver_Run_IterationLimit(t *testing.T) {
	f := newDriverFixture(t, Options{MaxIterations: 2, ImagesToKeep: 3})
	f.expect(
		respond(toolUse("toolu_1", "screenshot")),
		respond(toolUse("toolu_2", "screenshot")),
	)

	report, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIterationLimit)
	assert.Equal(t, 2, report.ModelCalls)
	assert.Equal(t, 2, report.Iterations)
	f.client.AssertExpectations(t)
}

type failingHydrator struct{}

func (failingHydrator) Hydrate(string, prompts.Type, map[string]any) (string, error) {
	return "", prompts.ErrTemplateNotFound
}

func TestDriver_Run_HydrationFailure(t *testing.T) {
	logger := zaptest.NewLogger(t)
	collection, err := tools.NewCollection(logger, &recordingComputer{})
	require.NoError(t, err)
	client := new(mocks.MockModelClient)

	d := NewDriver(logger, client, collection, failingHydrator{}, nil, Options{})
	_, err = d.Run(context.Background(), "transcript", "instruction")
	assert.ErrorIs(t, err, prompts.ErrTemplateNotFound)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestDriver_Run_SecondRunStartsFresh(t *testing.T) {
	f := newDriverFixture(t, Options{ImagesToKeep: 3})
	f.expect(
		respond(toolUse("toolu_1", "left_click")),
		respond(conversation.TextBlock("First done.")),
		respond(toolUse("toolu_1", "left_click")),
		respond(conversation.TextBlock("Second done.")),
	)

	first, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.NoError(t, err)
	second, err := f.driver.Run(context.Background(), "transcript", "instruction")
	require.NoError(t, err)
	f.client.AssertExpectations(t)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, "Second done.", second.FinalText)
	require.Len(t, second.Messages, 4)
	assert.Equal(t, "screenshot_20261019120000", second.Messages[1].Content[1].ID,
		"ids seen in an earlier run do not collide")
	assert.Equal(t, StateTerminated, f.driver.State())

	starts := f.logs.FilterMessage("Starting workflow replay").All()
	require.Len(t, starts, 2)
	assert.Equal(t, first.RunID, starts[0].ContextMap()["run_id"])
	assert.Equal(t, second.RunID, starts[1].ContextMap()["run_id"])
}
