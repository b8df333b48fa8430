package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// FromJSONSchema wraps a JSON Schema document as a Definition. The root
// schema is kept for resolving "#/$defs/..." references, the form the
// jsonschema reflector produces. Unsupported keywords are ignored rather
// than rejected.
func FromJSONSchema(s *jsonschema.Schema) Definition {
	if s == nil {
		return nil
	}
	return &jsonSchemaDef{schema: s, root: s}
}

type jsonSchemaDef struct {
	schema *jsonschema.Schema
	root   *jsonschema.Schema
}

func (d *jsonSchemaDef) wrap(s *jsonschema.Schema) Definition {
	if s == nil {
		return nil
	}
	return &jsonSchemaDef{schema: s, root: d.root}
}

// resolved follows $ref chains into the root's $defs.
func (d *jsonSchemaDef) resolved() *jsonschema.Schema {
	s := d.schema
	for i := 0; i < 16 && s != nil && s.Ref != ""; i++ {
		name, ok := strings.CutPrefix(s.Ref, "#/$defs/")
		if !ok {
			break
		}
		target, ok := d.root.Definitions[name]
		if !ok {
			break
		}
		s = target
	}
	return s
}

func (d *jsonSchemaDef) Kind() Kind {
	s := d.resolved()
	if len(s.AnyOf) > 0 || len(s.OneOf) > 0 {
		return KindUnion
	}
	switch s.Type {
	case "object":
		return KindObject
	case "array":
		return KindArray
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		return KindObject
	}
	return KindScalar
}

func (d *jsonSchemaDef) Property(name string) (Definition, bool) {
	s := d.resolved()
	if s.Properties == nil {
		return nil, false
	}
	child, ok := s.Properties.Get(name)
	if !ok || child == nil {
		return nil, false
	}
	return d.wrap(child), true
}

func (d *jsonSchemaDef) Properties() []string {
	s := d.resolved()
	if s.Properties == nil {
		return nil
	}
	names := make([]string, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

func (d *jsonSchemaDef) Items() Definition {
	s := d.resolved()
	if s.Items == nil {
		return nil
	}
	return d.wrap(s.Items)
}

func (d *jsonSchemaDef) IsRequired(name string) bool {
	for _, r := range d.resolved().Required {
		if r == name {
			return true
		}
	}
	return false
}

func (d *jsonSchemaDef) Validate(value any) []Violation {
	var out []Violation
	d.validate(value, nil, &out)
	return out
}

func (d *jsonSchemaDef) validate(value any, path []string, out *[]Violation) {
	s := d.resolved()

	// Union: valid if any variant accepts the value.
	variants := s.AnyOf
	if len(variants) == 0 {
		variants = s.OneOf
	}
	if len(variants) > 0 {
		for _, v := range variants {
			sub := d.wrap(v).(*jsonSchemaDef)
			var probe []Violation
			sub.validate(value, path, &probe)
			if len(probe) == 0 {
				return
			}
		}
		add(out, path, ViolationWrongType, fmt.Sprintf("value matches none of %d allowed schemas", len(variants)))
		return
	}

	if s.Type != "" && !matchesType(value, s.Type) {
		add(out, path, ViolationWrongType, fmt.Sprintf("expected %s, got %s", s.Type, typeName(value)))
		return
	}

	if s.Const != nil && !equalJSON(value, s.Const) {
		add(out, path, ViolationEnum, fmt.Sprintf("value must be %v", s.Const))
	}
	if len(s.Enum) > 0 {
		ok := false
		for _, e := range s.Enum {
			if equalJSON(value, e) {
				ok = true
				break
			}
		}
		if !ok {
			add(out, path, ViolationEnum, fmt.Sprintf("value not one of %d allowed values", len(s.Enum)))
		}
	}

	switch v := value.(type) {
	case string:
		d.validateString(s, v, path, out)
	case float64:
		d.validateNumber(s, v, path, out)
	case map[string]any:
		d.validateObject(s, v, path, out)
	case []any:
		d.validateArray(s, v, path, out)
	}
}

func (d *jsonSchemaDef) validateString(s *jsonschema.Schema, v string, path []string, out *[]Violation) {
	n := uint64(len([]rune(v)))
	if s.MinLength != nil && n < *s.MinLength {
		add(out, path, ViolationRange, fmt.Sprintf("string length %d below minimum %d", n, *s.MinLength))
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		add(out, path, ViolationRange, fmt.Sprintf("string length %d above maximum %d", n, *s.MaxLength))
	}
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err == nil && !re.MatchString(v) {
			add(out, path, ViolationPattern, fmt.Sprintf("value does not match pattern %q", s.Pattern))
		}
	}
}

func (d *jsonSchemaDef) validateNumber(s *jsonschema.Schema, v float64, path []string, out *[]Violation) {
	if s.Type == "integer" && v != float64(int64(v)) {
		add(out, path, ViolationWrongType, "expected integer, got non-integral number")
	}
	if min, ok := numberBound(s.Minimum); ok && v < min {
		add(out, path, ViolationRange, fmt.Sprintf("value %v below minimum %v", v, min))
	}
	if max, ok := numberBound(s.Maximum); ok && v > max {
		add(out, path, ViolationRange, fmt.Sprintf("value %v above maximum %v", v, max))
	}
	if min, ok := numberBound(s.ExclusiveMinimum); ok && v <= min {
		add(out, path, ViolationRange, fmt.Sprintf("value %v not above exclusive minimum %v", v, min))
	}
	if max, ok := numberBound(s.ExclusiveMaximum); ok && v >= max {
		add(out, path, ViolationRange, fmt.Sprintf("value %v not below exclusive maximum %v", v, max))
	}
}

func (d *jsonSchemaDef) validateObject(s *jsonschema.Schema, v map[string]any, path []string, out *[]Violation) {
	for _, name := range s.Required {
		if _, ok := v[name]; !ok {
			add(out, append(path, name), ViolationMissingValue, "required field missing")
		}
	}
	// Known properties in schema declaration order, then unknown keys
	// sorted, so findings come out in a stable order.
	known := make(map[string]struct{})
	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			known[pair.Key] = struct{}{}
			child, ok := v[pair.Key]
			if !ok || pair.Value == nil {
				continue
			}
			d.wrap(pair.Value).(*jsonSchemaDef).validate(child, append(path, pair.Key), out)
		}
	}
	if !isFalseSchema(s.AdditionalProperties) {
		return
	}
	var extra []string
	for name := range v {
		if _, ok := known[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		add(out, append(path, name), ViolationUnknownKey, "property not allowed")
	}
}

func (d *jsonSchemaDef) validateArray(s *jsonschema.Schema, v []any, path []string, out *[]Violation) {
	if s.MinItems != nil && uint64(len(v)) < *s.MinItems {
		add(out, path, ViolationRange, fmt.Sprintf("array length %d below minimum %d", len(v), *s.MinItems))
	}
	if s.MaxItems != nil && uint64(len(v)) > *s.MaxItems {
		add(out, path, ViolationRange, fmt.Sprintf("array length %d above maximum %d", len(v), *s.MaxItems))
	}
	if s.Items == nil {
		return
	}
	item := d.wrap(s.Items).(*jsonSchemaDef)
	for i, child := range v {
		item.validate(child, append(path, fmt.Sprintf("[%d]", i)), out)
	}
}

func add(out *[]Violation, path []string, kind ViolationKind, msg string) {
	*out = append(*out, Violation{
		Path:    append([]string(nil), path...),
		Kind:    kind,
		Message: msg,
	})
}

func matchesType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "number", "integer":
		_, ok := value.(float64)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "null":
		return value == nil
	}
	return true
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", value)
}

func numberBound(n json.Number) (float64, bool) {
	if n == "" {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// equalJSON compares a decoded value with a schema-side value (whose Go
// type depends on how the schema was built) through JSON normalization.
func equalJSON(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}

// isFalseSchema detects the boolean "false" schema the reflector uses for
// additionalProperties when extra keys are disallowed. The boolean flag is
// unexported, so detection goes through serialization.
func isFalseSchema(s *jsonschema.Schema) bool {
	if s == nil {
		return false
	}
	if s == jsonschema.FalseSchema {
		return true
	}
	b, err := json.Marshal(s)
	return err == nil && string(b) == "false"
}
