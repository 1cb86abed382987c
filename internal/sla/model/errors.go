package model

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or inconsistent tier/metric/rule
// definition. Fatal at startup; at runtime callers log it and fall back to a
// conservative default.
type ConfigurationError struct {
	Scope  string // e.g. "sla_targets", "escalation_rules"
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Scope, e.Detail)
}

// ValidationError reports malformed caller input: bad snapshot values,
// inverted time ranges, negative durations. The caller must retry with
// corrected input.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// NotFoundError reports an operation on an unknown breach or ticket id.
type NotFoundError struct {
	Kind string // "breach" | "ticket"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
