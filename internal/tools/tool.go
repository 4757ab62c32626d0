// File: internal/tools/tool.go
package tools

import (
	"context"
	"encoding/json"
)

// Tool is anything the model can call by name.
type Tool interface {
	// Name is the registry key and the name the model uses.
	Name() string
	// Spec describes the tool to the model provider.
	Spec() Spec
	// Invoke runs the tool. Declared faults come back inside the Outcome; a
	// non-nil error is an environment or programming fault and aborts the run.
	Invoke(ctx context.Context, input json.RawMessage) (Outcome, error)
}

// Spec is the provider-neutral declaration of a tool. Provider-defined tools
// such as computer use set Type and the display fields; custom tools set
// Description and InputSchema.
type Spec struct {
	Name        string
	Type        string
	Description string
	InputSchema map[string]any

	DisplayWidthPx  int
	DisplayHeightPx int
	// DisplayNumber is the X11 display, zero when unused.
	DisplayNumber int
}
