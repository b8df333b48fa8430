// Package errs defines shared error types for streamjson.
package errs

import (
	"fmt"
	"strings"
)

// ErrorType is an enum for validation error categories.
type ErrorType string

// Error type constants.
const (
	ErrorTypeWrongType    ErrorType = "wrong_type"    // Value present but of the wrong type
	ErrorTypeMissingValue ErrorType = "missing_value" // Required field absent
	ErrorTypePattern      ErrorType = "pattern"       // Pattern mismatch
	ErrorTypeRange        ErrorType = "range"         // Numeric or length bound violation
	ErrorTypeEnum         ErrorType = "enum"          // Value not in enum/const set
	ErrorTypeUnknownKey   ErrorType = "unknown_key"   // Property rejected by the schema
	ErrorTypeMalformed    ErrorType = "malformed"     // Unresolvable literal in the source text
)

// Recoverable reports whether errors of this type can be fixed
// deterministically (type coercion or default insertion). Everything else
// needs LLM-level or human correction.
func (t ErrorType) Recoverable() bool {
	return t == ErrorTypeWrongType || t == ErrorTypeMissingValue
}

// ValidationError represents a schema violation with location information.
// Violations are data: they accumulate and never abort the stream.
type ValidationError struct {
	Loc         []string  `json:"loc"`                  // Path to the field, e.g., ["user", "name"] or ["items", "[0]"]
	Message     string    `json:"message"`              // Human-readable error message
	Type        ErrorType `json:"type"`                 // Error category
	Recoverable bool      `json:"recoverable"`          // Whether a deterministic fix exists
	Suggestion  any       `json:"suggestion,omitempty"` // Optional replacement value
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if len(e.Loc) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", JoinPath(e.Loc), e.Message)
}

// ValidationErrors is a slice of ValidationError that implements error.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (es ValidationErrors) Error() string {
	if len(es) == 0 {
		return "validation errors: (none)"
	}
	if len(es) == 1 {
		return es[0].Error()
	}
	var msgs []string
	for _, e := range es {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("validation errors (%d): %s", len(es), strings.Join(msgs, "; "))
}

// Unwrap returns the errors as a slice for errors.As/errors.Is compatibility.
func (es ValidationErrors) Unwrap() []error {
	errs := make([]error, len(es))
	for i, e := range es {
		errs[i] = e
	}
	return errs
}

// StateError reports an operation invoked outside its required lifecycle
// state. Unlike ValidationError it is a hard failure: it signals integration
// misuse, not data quality.
type StateError struct {
	Op    string // The operation that was attempted
	State string // The state the stream was in
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: invalid state %q", e.Op, e.State)
}

// JoinPath joins a JSON path slice into a dot-separated string.
// Handles array indices like "[0]" correctly (no dot before brackets).
func JoinPath(path []string) string {
	if len(path) == 0 {
		return ""
	}
	result := path[0]
	for i := 1; i < len(path); i++ {
		if len(path[i]) > 0 && path[i][0] == '[' {
			result += path[i] // Array index like "[0]"
		} else {
			result += "." + path[i]
		}
	}
	return result
}

// IndexSegment renders an array index as a path segment.
func IndexSegment(i int) string {
	return fmt.Sprintf("[%d]", i)
}
