// Package schema compiles an opaque schema description into a lookup tree
// for path-based, progressive validation. The core consumes schemas only
// through the Definition capability surface; FromJSONSchema provides the
// default implementation over JSON Schema documents.
package schema

// Kind classifies a schema definition.
type Kind int

// Definition kinds.
const (
	KindScalar Kind = iota
	KindObject
	KindArray
	KindUnion
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindUnion:
		return "union"
	}
	return "scalar"
}

// ViolationKind categorizes a single schema violation. The values align
// with the streamjson error taxonomy.
type ViolationKind string

// Violation kinds.
const (
	ViolationWrongType    ViolationKind = "wrong_type"
	ViolationMissingValue ViolationKind = "missing_value"
	ViolationPattern      ViolationKind = "pattern"
	ViolationRange        ViolationKind = "range"
	ViolationEnum         ViolationKind = "enum"
	ViolationUnknownKey   ViolationKind = "unknown_key"
)

// Violation is one schema violation found by Definition.Validate, located
// relative to the validated value.
type Violation struct {
	Path    []string
	Kind    ViolationKind
	Message string
}

// Definition is the capability surface any concrete schema representation
// must implement. The core treats definitions opaquely beyond it.
type Definition interface {
	// Kind reports the structural class of this definition.
	Kind() Kind

	// Property returns the child definition for a named property of an
	// object definition.
	Property(name string) (Definition, bool)

	// Properties lists the property names of an object definition, in a
	// stable order.
	Properties() []string

	// Items returns the element definition of an array definition, or nil.
	Items() Definition

	// IsRequired reports whether the named property must be present.
	IsRequired(name string) bool

	// Validate checks a decoded JSON value (nil, bool, float64, string,
	// map[string]any, []any) and returns all violations found.
	Validate(value any) []Violation
}

// Partial returns a variant of def with every property's requiredness
// relaxed, recursively, while all other constraints stay enforced for
// properties that are present. Progressive validation uses it to avoid
// false missing-field reports for values that simply have not streamed yet.
func Partial(def Definition) Definition {
	if def == nil {
		return nil
	}
	if _, ok := def.(partialDefinition); ok {
		return def
	}
	return partialDefinition{def}
}

type partialDefinition struct {
	Definition
}

func (p partialDefinition) IsRequired(string) bool { return false }

func (p partialDefinition) Property(name string) (Definition, bool) {
	child, ok := p.Definition.Property(name)
	if !ok {
		return nil, false
	}
	return Partial(child), true
}

func (p partialDefinition) Items() Definition {
	return Partial(p.Definition.Items())
}

func (p partialDefinition) Validate(value any) []Violation {
	all := p.Definition.Validate(value)
	kept := all[:0:0]
	for _, v := range all {
		if v.Kind == ViolationMissingValue {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}
