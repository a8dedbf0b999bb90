package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrToolUnavailable_Error(t *testing.T) {
	err := &ErrToolUnavailable{ToolName: "web_fetch"}
	want := `tool "web_fetch" is not available in this context`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationError_WrappedErrorsAs(t *testing.T) {
	orig := &ValidationError{Tool: "web_fetch", Err: &ErrToolUnavailable{ToolName: "web_fetch"}}
	wrapped := fmt.Errorf("dispatch: %w", orig)

	var unavailable *ErrToolUnavailable
	if !errors.As(wrapped, &unavailable) {
		t.Fatal("errors.As failed to reach *ErrToolUnavailable through *ValidationError")
	}
	if unavailable.ToolName != "web_fetch" {
		t.Errorf("ToolName = %q", unavailable.ToolName)
	}
}

func TestValidationError_Messages(t *testing.T) {
	tests := []struct {
		err  *ValidationError
		want string
	}{
		{&ValidationError{Tool: "plan_tasks", Field: "goal", Reason: "required"}, `invalid argument "goal" for plan_tasks: required`},
		{&ValidationError{Tool: "x", Reason: "bad"}, "invalid call to x: bad"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestExecutionError(t *testing.T) {
	err := &ExecutionError{Tool: "code_exec", Err: context.DeadlineExceeded, Timeout: true, After: 10 * time.Second}
	if !strings.Contains(err.Error(), "timed out after 10s") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("ExecutionError should unwrap to the handler error")
	}

	plain := &ExecutionError{Tool: "write_note", Err: errors.New("disk full")}
	if plain.Error() != "tool write_note failed: disk full" {
		t.Errorf("Error() = %q", plain.Error())
	}
}
