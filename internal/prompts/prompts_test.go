// File: internal/prompts/prompts_test.go
package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func systemData() map[string]any {
	return map[string]any{
		KeyArchitecture:         "arm64",
		KeyDatetime:             "Monday, October 19, 2026",
		KeyWorkflowInstructions: "Open the browser and search for flights.",
		KeyUserInstruction:      "Search for flights to Lisbon instead.",
	}
}

func TestHydrator_Embedded(t *testing.T) {
	h, err := NewHydrator("", zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := h.Hydrate(ComputerUse, TypeSystem, systemData())
	require.NoError(t, err)
	assert.Contains(t, out, "arm64 architecture")
	assert.Contains(t, out, "The current date is Monday, October 19, 2026.")
	assert.Contains(t, out, "Open the browser and search for flights.")
	assert.Contains(t, out, "Search for flights to Lisbon instead.")
	assert.NotContains(t, out, "{{")
}

func TestHydrator_MissingKeyFails(t *testing.T) {
	h, err := NewHydrator("", zaptest.NewLogger(t))
	require.NoError(t, err)

	data := systemData()
	delete(data, KeyUserInstruction)

	_, err = h.Hydrate(ComputerUse, TypeSystem, data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_instruction")
}

func TestHydrator_UnknownTemplate(t *testing.T) {
	h, err := NewHydrator("", zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = h.Hydrate(ComputerUse, TypeUser, systemData())
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Contains(t, err.Error(), "computer_use_user.tmpl")
}

func TestHydrator_Override(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "computer_use_system.tmpl"),
		[]byte("Replay on {{.architecture}}: {{.user_instruction}}"), 0o644))

	h, err := NewHydrator(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	t.Run("OverrideShadowsEmbedded", func(t *testing.T) {
		out, err := h.Hydrate(ComputerUse, TypeSystem, systemData())
		require.NoError(t, err)
		assert.Equal(t, "Replay on arm64: Search for flights to Lisbon instead.", out)
	})

	t.Run("FallsBackWhenAbsent", func(t *testing.T) {
		_, err := h.Hydrate("transcription", TypeSystem, nil)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("ParseError", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_system.tmpl"), []byte("{{.unclosed"), 0o644))
		_, err := h.Hydrate("broken", TypeSystem, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse template")
	})
}

func TestNewHydrator_ExpandsHome(t *testing.T) {
	h, err := NewHydrator("~/prompts", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotContains(t, h.overrideDir, "~")
	assert.Equal(t, "prompts", filepath.Base(h.overrideDir))
}
