// Package streamjson incrementally reconstructs and validates a JSON
// document that arrives as arbitrary text fragments, the way an LLM emits
// tokens. Fragments are lexed into structural tokens, tokens are applied
// to an always-valid partial document, and the partial document is
// progressively validated against a compiled schema tree. Validation
// failures are data, not failures: they accumulate so a partially invalid
// response stays fully inspectable, and a bounded class of them (wrong
// type, missing required value) can be repaired with deterministic
// advisory tokens.
//
// Example:
//
//	st := streamjson.New()
//	st.Initialize(schema.FromJSONSchema(personSchema))
//
//	for fragment := range llmOutput {
//	    res, err := st.Feed(fragment)
//	    if err != nil {
//	        return err
//	    }
//	    render(res.Snapshot, res.Errors)
//	}
//	res, err := st.Complete()
package streamjson

import (
	"github.com/deepankarm/streamjson/pkg/internal/errs"
	"github.com/deepankarm/streamjson/pkg/internal/jsontoken"
)

// Token and kind aliases so callers never import internal packages.
type (
	// Token is one structural unit of the document stream.
	Token = jsontoken.Token
	// TokenKind identifies the structural role of a token.
	TokenKind = jsontoken.Kind
)

// Token kinds.
const (
	TokenObjectStart = jsontoken.ObjectStart
	TokenObjectEnd   = jsontoken.ObjectEnd
	TokenArrayStart  = jsontoken.ArrayStart
	TokenArrayEnd    = jsontoken.ArrayEnd
	TokenProperty    = jsontoken.Property
	TokenValue       = jsontoken.Value
)

// Error type aliases.
type (
	// ValidationError is one schema violation with location information.
	ValidationError = errs.ValidationError
	// ValidationErrors is an ordered list of violations implementing error.
	ValidationErrors = errs.ValidationErrors
	// ErrorType categorizes a validation error.
	ErrorType = errs.ErrorType
	// StateError reports an operation invoked outside its lifecycle state.
	StateError = errs.StateError
)

// Error type constants.
const (
	ErrorTypeWrongType    = errs.ErrorTypeWrongType
	ErrorTypeMissingValue = errs.ErrorTypeMissingValue
	ErrorTypePattern      = errs.ErrorTypePattern
	ErrorTypeRange        = errs.ErrorTypeRange
	ErrorTypeEnum         = errs.ErrorTypeEnum
	ErrorTypeUnknownKey   = errs.ErrorTypeUnknownKey
	ErrorTypeMalformed    = errs.ErrorTypeMalformed
)

// State is the lifecycle state of a Stream. Validation failures never
// cause a transition: errors accumulate as data while the state remains
// StateStreaming.
type State int

// Stream states.
const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
)

// String returns a readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Result is the per-token (and per-fragment) observation of the stream.
type Result struct {
	// Snapshot is an independent copy of the partial document.
	Snapshot any `json:"snapshot"`

	// Complete is true once the outermost container balanced or Complete
	// was called.
	Complete bool `json:"complete"`

	// Errors holds the findings of the most recent validation pass. The
	// pass after stream completion is the authoritative one; earlier
	// progressive passes are advisory.
	Errors ValidationErrors `json:"errors"`

	// Path locates the innermost open container.
	Path []string `json:"path"`

	// TokensSeen counts structural tokens applied so far.
	TokensSeen int `json:"tokens_seen"`

	// IncompletePaths lists locations whose values were cut off
	// mid-literal when the stream ended.
	IncompletePaths [][]string `json:"incomplete_paths,omitempty"`
}
