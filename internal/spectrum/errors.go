// Package spectrum implements the flux-sweep spectral analysis engine:
// Hamiltonian diagonalization, parameter sweeps with per-point failure
// recovery, avoided-crossing detection and gate metric extraction.
package spectrum

import "fmt"

// ValidationError reports malformed input to a core operation. It is always
// returned before any computation proceeds, so a failed call leaves no
// partial work behind.
type ValidationError struct {
	Field   string // Offending parameter name, empty when not tied to a single field
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a validation error for a named field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DiagonalizationError reports a failed eigendecomposition: either the
// requested level count exceeds the representable basis size, or the
// underlying solver did not converge.
type DiagonalizationError struct {
	Message string
	Err     error // Underlying solver error, may be nil
}

func (e *DiagonalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("diagonalization failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("diagonalization failed: %s", e.Message)
}

func (e *DiagonalizationError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a structurally unusable circuit (unknown flux
// loop, unconfigured truncation). There is no recovery: it propagates
// immediately, even inside a sweep.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "circuit configuration: " + e.Message
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
