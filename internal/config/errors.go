package config

import "fmt"

// ErrorKind categorizes a configuration or input failure.
type ErrorKind string

const (
	// ErrorKindMissingFile indicates a referenced file does not exist or cannot be opened
	ErrorKindMissingFile ErrorKind = "missing_file"
	// ErrorKindMalformedInput indicates a value or file could not be parsed or is out of range
	ErrorKindMalformedInput ErrorKind = "malformed_input"
)

// ConfigError is a fatal error raised before any symbol is fetched.
type ConfigError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("config %s: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewMissingFileError creates a missing file error
func NewMissingFileError(path string, cause error) *ConfigError {
	return &ConfigError{
		Kind:    ErrorKindMissingFile,
		Message: fmt.Sprintf("cannot open %s", path),
		Cause:   cause,
	}
}

// NewMalformedInputError creates a malformed input error
func NewMalformedInputError(message string, cause error) *ConfigError {
	return &ConfigError{
		Kind:    ErrorKindMalformedInput,
		Message: message,
		Cause:   cause,
	}
}
