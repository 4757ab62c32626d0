// File: internal/tools/collection.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Collection is the fixed, name-keyed registry of tools for a run. It is the
// one place where tool faults become data.
type Collection struct {
	logger *zap.Logger
	tools  []Tool
	byName map[string]Tool
}

// NewCollection registers the given tools. Names must be unique.
func NewCollection(logger *zap.Logger, tools ...Tool) (*Collection, error) {
	c := &Collection{
		logger: logger.Named("tools.collection"),
		tools:  make([]Tool, 0, len(tools)),
		byName: make(map[string]Tool, len(tools)),
	}
	for _, t := range tools {
		name := t.Name()
		if _, exists := c.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		c.byName[name] = t
		c.tools = append(c.tools, t)
	}
	return c, nil
}

// Specs returns the declarations of every registered tool in registration order.
func (c *Collection) Specs() []Spec {
	specs := make([]Spec, 0, len(c.tools))
	for _, t := range c.tools {
		specs = append(specs, t.Spec())
	}
	return specs
}

// Run dispatches one tool call. Unknown tools and declared faults come back as
// failure results; any other error from the tool is returned unchanged.
func (c *Collection) Run(ctx context.Context, name string, input json.RawMessage) (result Result, err error) {
	tool, ok := c.byName[name]
	if !ok {
		outcome := Errf(ErrCodeUnknownTool, "Tool %s is invalid", name)
		c.logger.Warn("Model requested an unregistered tool",
			zap.String("tool", name),
			zap.String("error_code", string(outcome.Fault().Code)))
		return outcome.ToResult(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Tool panicked during invocation",
				zap.String("tool", name),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result, err = Result{}, fmt.Errorf("%w: %s: %v", ErrToolPanic, name, r)
		}
	}()

	outcome, err := tool.Invoke(ctx, input)
	if err != nil {
		return Result{}, err
	}
	if f := outcome.Fault(); f != nil {
		c.logger.Debug("Tool reported a fault",
			zap.String("tool", name),
			zap.String("error_code", string(f.Code)),
			zap.String("message", f.Message))
	}
	return outcome.ToResult(), nil
}
