package chat

import "fmt"

// ValidationError is returned when a required request field is missing or
// malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("missing required field %q", e.Field)
}

// ConfigurationError is returned for bad static configuration, such as an
// unknown preset key or a missing provider key.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

// DependencyError wraps a failure from an external collaborator (search,
// skills directory).
type DependencyError struct {
	Dep string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s dependency failed: %v", e.Dep, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
