package domain

import "fmt"

// ConfigError reports a malformed or self-contradictory methodology.
// It is fatal: computation must not proceed and nothing may be published.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "methodology config: " + e.Reason
	}
	return fmt.Sprintf("methodology config: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports an observation that fails a sanity bound. The
// observation is excluded from computation and surfaced as a warning on the
// result, never silently dropped.
type ValidationError struct {
	ObservationID string
	Reason        string
}

func (e *ValidationError) Error() string {
	if e.ObservationID == "" {
		return "invalid observation: " + e.Reason
	}
	return fmt.Sprintf("invalid observation %s: %s", e.ObservationID, e.Reason)
}

func validationErrorf(id, format string, args ...interface{}) *ValidationError {
	return &ValidationError{ObservationID: id, Reason: fmt.Sprintf(format, args...)}
}
