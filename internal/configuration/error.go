package configuration

import "errors"

var (
	// ErrMissingRoot is an error that occurs when no sandbox root was
	// configured, neither by flag nor by environment.
	ErrMissingRoot = errors.New("no sandbox root configured")

	// ErrInvalidValue is an error that occurs when a configuration value is
	// out of its permitted range.
	ErrInvalidValue = errors.New("invalid configuration value")
)
