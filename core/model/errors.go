package model

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports invalid input data found before compilation.
type ConfigurationError struct {
	Component string // empty for system-level problems
	Field     string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s: %s", e.Component, e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErr(component, field, format string, args ...any) error {
	return &ConfigurationError{Component: component, Field: field, Reason: fmt.Sprintf(format, args...)}
}
