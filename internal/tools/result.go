// File: internal/tools/result.go
package tools

import "fmt"

// Result is the outcome of one tool invocation as seen by the model. Image
// holds a base64 encoded PNG.
type Result struct {
	Output string
	Error  string
	Image  string
	System string
}

// Failure builds a Result that reports msg as a tool error.
func Failure(msg string) Result {
	return Result{Error: msg}
}

// IsZero reports whether no field of r is set.
func (r Result) IsZero() bool {
	return r.Output == "" && r.Error == "" && r.Image == "" && r.System == ""
}

// IsFailure reports whether r carries an error message.
func (r Result) IsFailure() bool {
	return r.Error != ""
}

// HasImage reports whether r carries a screenshot payload.
func (r Result) HasImage() bool {
	return r.Image != ""
}

// Merge combines two results field by field. Text fields set on both sides
// are concatenated, a before b. Images cannot be concatenated, so two
// image-bearing results yield ErrCannotCombine.
func Merge(a, b Result) (Result, error) {
	if a.Image != "" && b.Image != "" {
		return Result{}, fmt.Errorf("merging image results: %w", ErrCannotCombine)
	}
	image := a.Image
	if image == "" {
		image = b.Image
	}
	return Result{
		Output: a.Output + b.Output,
		Error:  a.Error + b.Error,
		Image:  image,
		System: a.System + b.System,
	}, nil
}
