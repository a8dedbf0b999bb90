package tools

import (
	"fmt"
	"time"
)

// ErrToolUnavailable is returned when a tool call targets a tool that
// is not present in the run's registry. This indicates a capability
// mismatch (removed for a documents-only run, or nonexistent), not a
// transient execution failure.
type ErrToolUnavailable struct {
	ToolName string
}

// Error implements the error interface.
func (e *ErrToolUnavailable) Error() string {
	return fmt.Sprintf("tool %q is not available in this context", e.ToolName)
}

// ValidationError reports a tool call whose arguments do not satisfy the
// tool's input schema, or a call to an unavailable tool.
type ValidationError struct {
	Tool   string
	Field  string // empty when the error is not about one field
	Reason string
	Err    error // underlying cause, e.g. *ErrToolUnavailable
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("invalid call to %s: %v", e.Tool, e.Err)
	case e.Field != "":
		return fmt.Sprintf("invalid argument %q for %s: %s", e.Field, e.Tool, e.Reason)
	default:
		return fmt.Sprintf("invalid call to %s: %s", e.Tool, e.Reason)
	}
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error { return e.Err }

// ExecutionError wraps a failure inside a tool handler.
type ExecutionError struct {
	Tool    string
	Err     error
	Timeout bool
	After   time.Duration // configured limit when Timeout is set
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("tool %s timed out after %s", e.Tool, e.After)
	}
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

// Unwrap returns the handler error.
func (e *ExecutionError) Unwrap() error { return e.Err }
