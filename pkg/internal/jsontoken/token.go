package jsontoken

import "strconv"

// Kind identifies the structural role of a token.
type Kind int

// Token kinds.
const (
	ObjectStart Kind = iota
	ObjectEnd
	ArrayStart
	ArrayEnd
	Property
	Value
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case ObjectStart:
		return "object-start"
	case ObjectEnd:
		return "object-end"
	case ArrayStart:
		return "array-start"
	case ArrayEnd:
		return "array-end"
	case Property:
		return "property"
	case Value:
		return "value"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Token is one structural unit of a JSON document. Tokens drive the
// document builder; the lexer produces them from raw text fragments.
type Token struct {
	Kind      Kind
	Name      string   // Property name, set when Kind == Property
	Value     any      // Literal value, set when Kind == Value
	Path      []string // Target location, set on advisory (recovery) tokens
	Valid     bool     // False when synthesized from incomplete or unresolvable input
	Malformed bool     // The source text was unresolvable, not merely cut off
}
