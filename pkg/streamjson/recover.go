package streamjson

import (
	"strconv"
	"strings"

	"github.com/deepankarm/streamjson/pkg/internal/errs"
	"github.com/deepankarm/streamjson/pkg/internal/jsontoken"
	"github.com/deepankarm/streamjson/pkg/streamjson/schema"
)

// suggest synthesizes corrective tokens for one error with the lock held.
// Only missing-value and wrong-type errors are covered; everything else
// returns nil.
func (s *Stream) suggest(e ValidationError) []Token {
	if s.tree == nil {
		return nil
	}
	switch e.Type {
	case errs.ErrorTypeMissingValue:
		node := s.tree.Find(e.Loc)
		if node == nil || !samePath(node.Path, e.Loc) {
			// The schema does not cover this exact path; no default can
			// be looked up.
			return nil
		}
		name := e.Loc[len(e.Loc)-1]
		parent := e.Loc[:len(e.Loc)-1]
		return []Token{
			{Kind: jsontoken.Property, Name: name, Path: append([]string(nil), parent...), Valid: true},
			{Kind: jsontoken.Value, Value: defaultFor(node.Def), Path: append([]string(nil), e.Loc...), Valid: true},
		}

	case errs.ErrorTypeWrongType:
		node := s.tree.Find(e.Loc)
		if node == nil || !samePath(node.Path, e.Loc) {
			return nil
		}
		current, ok := s.builder.ValueAt(e.Loc)
		if !ok {
			return nil
		}
		converted, ok := convert(current, node.Def)
		if !ok {
			return nil
		}
		return []Token{
			{Kind: jsontoken.Value, Value: converted, Path: append([]string(nil), e.Loc...), Valid: true},
		}
	}
	return nil
}

// defaultFor picks the type-appropriate default for a definition: empty
// containers for container kinds, and for scalars the first of "", 0,
// false, null the definition accepts. Acceptance is probed through
// Validate so the decision stays inside the capability surface.
func defaultFor(def schema.Definition) any {
	switch def.Kind() {
	case schema.KindObject:
		return map[string]any{}
	case schema.KindArray:
		return []any{}
	}
	for _, candidate := range []any{"", float64(0), false, nil} {
		if acceptsType(def, candidate) {
			return candidate
		}
	}
	return ""
}

// convert attempts the best-effort primitive conversion of a held value
// to whatever type the definition accepts. Conversions are defined only
// between string, number and boolean; anything else reports failure.
func convert(current any, def schema.Definition) (any, bool) {
	var candidates []any
	switch v := current.(type) {
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			candidates = append(candidates, f)
		}
		if b, err := strconv.ParseBool(v); err == nil && (v == "true" || v == "false") {
			candidates = append(candidates, b)
		}
	case float64:
		candidates = append(candidates, strconv.FormatFloat(v, 'f', -1, 64))
		if v == 0 {
			candidates = append(candidates, false)
		} else if v == 1 {
			candidates = append(candidates, true)
		}
	case bool:
		candidates = append(candidates, strconv.FormatBool(v))
		if v {
			candidates = append(candidates, float64(1))
		} else {
			candidates = append(candidates, float64(0))
		}
	default:
		return nil, false
	}
	for _, c := range candidates {
		if acceptsType(def, c) {
			return c, true
		}
	}
	return nil, false
}

// acceptsType reports whether the definition has no type-level objection
// to the value. Range or pattern violations may remain; those are not
// this mechanism's concern.
func acceptsType(def schema.Definition, value any) bool {
	for _, v := range def.Validate(value) {
		if v.Kind == schema.ViolationWrongType && len(v.Path) == 0 {
			return false
		}
	}
	return true
}

// samePath compares a schema node path with an error location. Schema
// trees address array items as "[]" while error locations carry concrete
// indices, so any two index segments match.
func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		if strings.HasPrefix(a[i], "[") && strings.HasPrefix(b[i], "[") {
			continue
		}
		return false
	}
	return true
}
