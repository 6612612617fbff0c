package sim

import (
	"errors"
	"fmt"
)

// ConfigurationError reports malformed simulator input: a negative period,
// an empty sweep grid, a nil factory or a factory that returned nothing.
// Individual missing parameters are never configuration errors; they
// default to zero or the identity multiplier.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
