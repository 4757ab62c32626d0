// File: internal/agent/aggregator.go
package agent

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/cycle-cli/internal/conversation"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
)

// MakeToolResultBlock converts a tool result into the tool_result block
// answering toolUseID. An error result carries only the error text. Otherwise
// the output text comes first, then the image. Text is prefixed with the
// result's system note when one is set.
func MakeToolResultBlock(res tools.Result, toolUseID string) conversation.Block {
	if res.IsFailure() {
		return conversation.ToolResultBlock(toolUseID, true,
			conversation.TextBlock(withSystemNote(res, res.Error)))
	}

	var content []conversation.Block
	if res.Output != "" {
		content = append(content, conversation.TextBlock(withSystemNote(res, res.Output)))
	}
	if res.Image != "" {
		content = append(content, conversation.ImageBlock(conversation.MediaTypePNG, res.Image))
	}
	return conversation.ToolResultBlock(toolUseID, false, content...)
}

func withSystemNote(res tools.Result, text string) string {
	if res.System == "" {
		return text
	}
	return fmt.Sprintf("<system>%s</system>\n%s", res.System, text)
}

// ScreenshotStore persists the screenshots a run produces.
type ScreenshotStore interface {
	// Save writes the base64 PNG taken by the given tool call and returns
	// the file name it was stored under.
	Save(toolUseID, base64PNG string) (string, error)
}

// DirStore writes screenshots as screenshot_<tool_use_id>.png into a
// directory, creating it on first use.
type DirStore struct {
	dir string
}

var _ ScreenshotStore = (*DirStore)(nil)

// NewDirStore creates a DirStore rooted at dir. A leading ~ is expanded.
func NewDirStore(dir string) (*DirStore, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand screenshots directory: %w", err)
	}
	return &DirStore{dir: expanded}, nil
}

// Dir returns the directory screenshots are written to.
func (s *DirStore) Dir() string { return s.dir }

// Save implements ScreenshotStore.
func (s *DirStore) Save(toolUseID, base64PNG string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(base64PNG)
	if err != nil {
		return "", fmt.Errorf("failed to decode screenshot %s: %w", toolUseID, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	name := fmt.Sprintf("screenshot_%s.png", toolUseID)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot %s: %w", name, err)
	}
	return name, nil
}
