// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/cycle-cli/internal/llmclient"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
)

// -- LLM Client Mock --

// MockModelClient mocks llmclient.ModelClient.
type MockModelClient struct {
	mock.Mock
}

// CreateMessage records the call and returns the configured response.
func (m *MockModelClient) CreateMessage(ctx context.Context, req llmclient.Request) (*llmclient.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*llmclient.Response)
	return resp, args.Error(1)
}

// -- Tool Mock --

// MockTool mocks tools.Tool.
type MockTool struct {
	mock.Mock
}

func (m *MockTool) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTool) Spec() tools.Spec {
	args := m.Called()
	return args.Get(0).(tools.Spec)
}

func (m *MockTool) Invoke(ctx context.Context, input json.RawMessage) (tools.Outcome, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(tools.Outcome), args.Error(1)
}

// -- Screenshot Store Mock --

// MockScreenshotStore mocks the driver's screenshot persistence.
type MockScreenshotStore struct {
	mock.Mock
}

func (m *MockScreenshotStore) Save(toolUseID, base64PNG string) (string, error) {
	args := m.Called(toolUseID, base64PNG)
	return args.String(0), args.Error(1)
}
