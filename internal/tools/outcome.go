// File: internal/tools/outcome.go
package tools

import "fmt"

// Outcome is the tagged value a Tool returns: either Ok with a Result, or Err
// with a Fault. Errors that should abort the run travel separately as a
// plain Go error.
type Outcome struct {
	result Result
	fault  *Fault
}

// Ok wraps a successful result.
func Ok(r Result) Outcome {
	return Outcome{result: r}
}

// Err builds a failed outcome with a code and message.
func Err(code ErrorCode, msg string) Outcome {
	return Outcome{fault: &Fault{Code: code, Message: msg}}
}

// Errf is Err with fmt.Sprintf formatting.
func Errf(code ErrorCode, format string, args ...any) Outcome {
	return Err(code, fmt.Sprintf(format, args...))
}

// IsOk reports whether the outcome carries a result rather than a fault.
func (o Outcome) IsOk() bool {
	return o.fault == nil
}

// Result returns the successful result. It is the zero Result for faults.
func (o Outcome) Result() Result {
	return o.result
}

// Fault returns the fault, or nil for successful outcomes.
func (o Outcome) Fault() *Fault {
	return o.fault
}

// ToResult collapses the outcome into the Result reported to the model.
func (o Outcome) ToResult() Result {
	if o.fault != nil {
		return Failure(o.fault.Message)
	}
	return o.result
}

// FromFault wraps an existing fault.
func FromFault(f *Fault) Outcome {
	return Outcome{fault: f}
}
