package sim

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is returned when the caller's context is done at a day boundary.
var ErrCancelled = errors.New("sim: run cancelled")

// ConfigurationError reports every problem found in a parameter set or run
// request. It is returned before any simulation state exists.
type ConfigurationError struct {
	Violations []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid configuration: " + e.Violations[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems):\n  - %s",
		len(e.Violations), strings.Join(e.Violations, "\n  - "))
}

// newConfigurationError returns nil when there is nothing to report.
func newConfigurationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ConfigurationError{Violations: violations}
}

// InternalInvariantError signals a defect in the engine itself, never bad input:
// the schema and the config groups drifted apart, or a minute produced a
// non-finite value.
type InternalInvariantError struct {
	Field string
	Err   error
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated (%s): %v", e.Field, e.Err)
}

func (e *InternalInvariantError) Unwrap() error {
	return e.Err
}
