package core

import "fmt"

// ConfigError represents a configuration error
type ConfigError struct {
	msg string
	err error
}

func (e ConfigError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap exposes the wrapped sentinel, if any
func (e ConfigError) Unwrap() error {
	return e.err
}

// ErrInvalidConfig creates a new configuration error
func ErrInvalidConfig(msg string) error {
	return ConfigError{msg: msg}
}

// ErrInvalidConfigf creates a new formatted configuration error
func ErrInvalidConfigf(format string, args ...interface{}) error {
	return ConfigError{msg: fmt.Sprintf(format, args...)}
}

// WrapConfigError marks err as a configuration error with extra context.
func WrapConfigError(err error, format string, args ...interface{}) error {
	return ConfigError{msg: fmt.Sprintf(format, args...), err: err}
}
