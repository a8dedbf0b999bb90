package agent

import "fmt"

// ConfigurationError reports a run that cannot start. It is returned
// before any model call or tool dispatch.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid run configuration: %s: %s", e.Field, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProviderError wraps a failed model call. It aborts the run.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("model call to %s (%s) failed: %v", e.Provider, e.Model, e.Err)
}

// Unwrap returns the provider's error.
func (e *ProviderError) Unwrap() error { return e.Err }

// BudgetExhaustedError reports a run stopped by its step budget.
type BudgetExhaustedError struct {
	Budget int
}

// Error implements the error interface.
func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("step budget of %d exhausted before a final answer", e.Budget)
}
