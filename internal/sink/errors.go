package sink

import "fmt"

// ErrorKind categorizes a sink failure.
type ErrorKind string

const (
	// ErrorKindUnwritable indicates the output could not be created, encoded or moved into place
	ErrorKindUnwritable ErrorKind = "unwritable"
	// ErrorKindEmptyResult indicates there were no accepted rows to write
	ErrorKindEmptyResult ErrorKind = "empty_result"
)

// SinkError is a fatal output failure.
type SinkError struct {
	Kind  ErrorKind
	Path  string
	Cause error
}

// Error implements the error interface
func (e *SinkError) Error() string {
	switch {
	case e.Kind == ErrorKindEmptyResult:
		return fmt.Sprintf("sink %s: no accepted rows to write to %s", e.Kind, e.Path)
	case e.Cause != nil:
		return fmt.Sprintf("sink %s: %s: %v", e.Kind, e.Path, e.Cause)
	default:
		return fmt.Sprintf("sink %s: %s", e.Kind, e.Path)
	}
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *SinkError) Unwrap() error {
	return e.Cause
}
