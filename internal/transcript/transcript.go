// File: internal/transcript/transcript.go
package transcript

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Stdin is the path that makes Load read standard input.
const Stdin = "-"

// Load reads a recorded workflow transcript and cleans it with Clean.
func Load(path, separator string) (string, error) {
	return load(path, separator, os.Stdin)
}

func load(path, separator string, stdin io.Reader) (string, error) {
	var raw []byte
	var err error
	if path == Stdin {
		raw, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read transcript from stdin: %w", err)
		}
	} else {
		expanded, expandErr := homedir.Expand(path)
		if expandErr != nil {
			return "", fmt.Errorf("failed to expand transcript path: %w", expandErr)
		}
		raw, err = os.ReadFile(expanded)
		if err != nil {
			return "", fmt.Errorf("failed to read transcript: %w", err)
		}
	}

	cleaned := Clean(string(raw), separator)
	if strings.TrimSpace(cleaned) == "" {
		return "", fmt.Errorf("transcript %s is empty", path)
	}
	return cleaned, nil
}

// Clean splits text on separator, drops the empty parts and concatenates the
// rest. An empty separator leaves the text unchanged.
func Clean(text, separator string) string {
	if separator == "" {
		return text
	}
	var b strings.Builder
	for _, part := range strings.Split(text, separator) {
		if part != "" {
			b.WriteString(part)
		}
	}
	return b.String()
}
