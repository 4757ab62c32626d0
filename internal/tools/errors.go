// File: internal/tools/errors.go
package tools

import "errors"

// ErrorCode classifies a tool-level fault. Faults carrying a code are turned
// into data by the Collection and reported back to the model.
type ErrorCode string

const (
	// ErrCodeInvalidParameters marks input that violates an action's parameter contract.
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	// ErrCodeUnknownAction marks an action name outside the tool's enumeration.
	ErrCodeUnknownAction ErrorCode = "UNKNOWN_ACTION_TYPE"
	// ErrCodeUnknownTool marks a call to a tool that is not registered.
	ErrCodeUnknownTool ErrorCode = "UNKNOWN_TOOL"
	// ErrCodeExecutionFailure marks an action that was valid but failed while running.
	ErrCodeExecutionFailure ErrorCode = "EXECUTION_FAILURE"
)

var (
	// ErrCannotCombine is returned by Merge when both results carry an image.
	ErrCannotCombine = errors.New("cannot combine tool results")
	// ErrDuplicateTool is returned by NewCollection when two tools share a name.
	ErrDuplicateTool = errors.New("duplicate tool name")
	// ErrToolPanic wraps a panic recovered while invoking a tool.
	ErrToolPanic = errors.New("tool panicked")
)

// Fault is a declared, recoverable tool error.
type Fault struct {
	Code    ErrorCode
	Message string
}

func (f *Fault) Error() string {
	return f.Message
}
