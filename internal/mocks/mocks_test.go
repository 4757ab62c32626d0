// File: internal/mocks/mocks_test.go
package mocks

import (
	"github.com/xkilldash9x/cycle-cli/internal/llmclient"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
)

var (
	_ llmclient.ModelClient = (*MockModelClient)(nil)
	_ tools.Tool            = (*MockTool)(nil)
)
