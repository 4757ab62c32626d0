// File: internal/prompts/prompts.go
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// Type distinguishes the role a template plays in a request.
type Type string

const (
	TypeSystem Type = "system"
	TypeUser   Type = "user"
)

// Template names and the keys of the computer use system prompt.
const (
	ComputerUse = "computer_use"

	KeyArchitecture         = "architecture"
	KeyDatetime             = "datetime"
	KeyWorkflowInstructions = "workflow_instructions"
	KeyUserInstruction      = "user_instruction"
)

// DatetimeLayout renders dates as "Monday, January 2, 2006".
const DatetimeLayout = "Monday, January 2, 2006"

const templateExt = ".tmpl"

// ErrTemplateNotFound is returned when neither the override directory nor the
// embedded defaults contain the requested template.
var ErrTemplateNotFound = errors.New("prompt template not found")

//go:embed templates/*.tmpl
var embedded embed.FS

// Hydrator renders prompt templates. Every key a template references must be
// supplied.
type Hydrator struct {
	overrideDir string
	logger      *zap.Logger
}

// NewHydrator creates a Hydrator. Templates in overrideDir, when set, shadow
// the embedded ones of the same name.
func NewHydrator(overrideDir string, logger *zap.Logger) (*Hydrator, error) {
	if overrideDir != "" {
		expanded, err := homedir.Expand(overrideDir)
		if err != nil {
			return nil, fmt.Errorf("failed to expand prompts directory: %w", err)
		}
		overrideDir = expanded
	}
	return &Hydrator{
		overrideDir: overrideDir,
		logger:      logger.Named("prompts"),
	}, nil
}

// Hydrate renders the template <name>_<type>.tmpl with data.
func (h *Hydrator) Hydrate(name string, typ Type, data map[string]any) (string, error) {
	fileName := fmt.Sprintf("%s_%s%s", name, typ, templateExt)
	source, err := h.load(fileName)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(fileName).Option("missingkey=error").Parse(string(source))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", fileName, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", fileName, err)
	}
	return buf.String(), nil
}

func (h *Hydrator) load(fileName string) ([]byte, error) {
	if h.overrideDir != "" {
		path := filepath.Join(h.overrideDir, fileName)
		source, err := os.ReadFile(path)
		switch {
		case err == nil:
			h.logger.Debug("Using prompt template override", zap.String("path", path))
			return source, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read template %s: %w", path, err)
		}
	}

	source, err := embedded.ReadFile("templates/" + fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, fileName)
	}
	return source, nil
}
