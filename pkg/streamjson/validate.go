package streamjson

import (
	"github.com/deepankarm/streamjson/pkg/internal/errs"
	"github.com/deepankarm/streamjson/pkg/streamjson/schema"
)

// validateProgressive runs the advisory pass: find the schema node nearest
// the current path, relax its requiredness, and validate the sub-value it
// covers. Constraints on properties that are present stay enforced;
// missing-field reports are suppressed since the fields may simply not
// have streamed yet.
func (s *Stream) validateProgressive() ValidationErrors {
	if s.tree == nil {
		return nil
	}
	cur := s.builder.Path()
	node := s.tree.Find(cur)
	if node == nil {
		return nil
	}
	// The node's own path may hold the "[]" items placeholder; the prefix
	// of the current path it matched has the concrete indices.
	base := cur
	if len(node.Path) < len(cur) {
		base = cur[:len(node.Path)]
	}
	value, ok := s.builder.ValueAt(base)
	if !ok {
		return nil
	}
	violations := schema.Partial(node.Def).Validate(value)
	return toErrors(base, violations)
}

// validateFinal runs the authoritative pass: the unmodified, fully
// required schema against the whole document, with an empty base path.
func (s *Stream) validateFinal() ValidationErrors {
	if s.tree == nil {
		return nil
	}
	violations := s.tree.Root().Def.Validate(s.builder.Snapshot())
	return toErrors(nil, violations)
}

// toErrors maps schema violations onto the error taxonomy. A violation is
// recoverable exactly when its kind is wrong-type or missing-value; all
// other kinds need LLM-level or human correction.
func toErrors(base []string, violations []schema.Violation) ValidationErrors {
	if len(violations) == 0 {
		return nil
	}
	out := make(ValidationErrors, 0, len(violations))
	for _, v := range violations {
		loc := make([]string, 0, len(base)+len(v.Path))
		loc = append(loc, base...)
		loc = append(loc, v.Path...)
		typ := violationType(v.Kind)
		out = append(out, ValidationError{
			Loc:         loc,
			Message:     v.Message,
			Type:        typ,
			Recoverable: typ.Recoverable(),
		})
	}
	return out
}

func violationType(k schema.ViolationKind) ErrorType {
	switch k {
	case schema.ViolationWrongType:
		return errs.ErrorTypeWrongType
	case schema.ViolationMissingValue:
		return errs.ErrorTypeMissingValue
	case schema.ViolationPattern:
		return errs.ErrorTypePattern
	case schema.ViolationRange:
		return errs.ErrorTypeRange
	case schema.ViolationEnum:
		return errs.ErrorTypeEnum
	case schema.ViolationUnknownKey:
		return errs.ErrorTypeUnknownKey
	}
	return errs.ErrorTypeMalformed
}
