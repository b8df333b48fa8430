package schema_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/invopop/jsonschema"

	"github.com/deepankarm/streamjson/pkg/streamjson/schema"
)

func mustSchema(t *testing.T, raw string) *jsonschema.Schema {
	t.Helper()
	var s jsonschema.Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return &s
}

func mustValue(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("parse value: %v", err)
	}
	return v
}

const personSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 2},
		"age": {"type": "integer", "minimum": 0, "maximum": 130},
		"email": {"type": "string", "pattern": "^[^@]+@[^@]+$"},
		"role": {"type": "string", "enum": ["admin", "user"]},
		"tags": {"type": "array", "items": {"type": "string"}},
		"address": {
			"type": "object",
			"required": ["city"],
			"properties": {"city": {"type": "string"}}
		}
	}
}`

func TestDefinitionCapabilities(t *testing.T) {
	def := schema.FromJSONSchema(mustSchema(t, personSchema))

	if def.Kind() != schema.KindObject {
		t.Errorf("kind = %v, want object", def.Kind())
	}
	if !def.IsRequired("name") {
		t.Error("name must be required")
	}
	if def.IsRequired("age") {
		t.Error("age must not be required")
	}

	props := def.Properties()
	want := []string{"name", "age", "email", "role", "tags", "address"}
	if !reflect.DeepEqual(props, want) {
		t.Errorf("properties = %v, want %v", props, want)
	}

	tags, ok := def.Property("tags")
	if !ok {
		t.Fatal("tags property missing")
	}
	if tags.Kind() != schema.KindArray {
		t.Errorf("tags kind = %v, want array", tags.Kind())
	}
	if items := tags.Items(); items == nil || items.Kind() != schema.KindScalar {
		t.Error("tags items must be a scalar definition")
	}
	if _, ok := def.Property("nope"); ok {
		t.Error("unknown property must report absence")
	}
}

func TestCompileMirrorsNesting(t *testing.T) {
	tree := schema.Compile(schema.FromJSONSchema(mustSchema(t, personSchema)))

	root := tree.Root()
	if root == nil || root.Parent != nil {
		t.Fatal("root must exist with nil parent")
	}
	if len(root.Children) != 6 {
		t.Fatalf("root children = %d, want 6", len(root.Children))
	}

	name := root.Children["name"]
	if name == nil || !name.Required {
		t.Fatal("name child must exist and be required")
	}
	if name.Parent != root {
		t.Error("parent back-reference broken")
	}
	if !reflect.DeepEqual(name.Path, []string{"name"}) {
		t.Errorf("name path = %v", name.Path)
	}

	tags := root.Children["tags"]
	if tags.Items == nil {
		t.Fatal("tags must have an items node")
	}
	if !reflect.DeepEqual(tags.Items.Path, []string{"tags", "[]"}) {
		t.Errorf("items path = %v", tags.Items.Path)
	}

	city := root.Children["address"].Children["city"]
	if city == nil || !city.Required {
		t.Fatal("address.city must exist and be required")
	}
	if tree.Len() != 9 {
		t.Errorf("arena size = %d, want 9", tree.Len())
	}
}

func TestFindNearestAncestor(t *testing.T) {
	tree := schema.Compile(schema.FromJSONSchema(mustSchema(t, personSchema)))

	if n := tree.Find([]string{"address", "city"}); !reflect.DeepEqual(n.Path, []string{"address", "city"}) {
		t.Errorf("exact lookup returned %v", n.Path)
	}
	// Unknown leaf degrades to the nearest covered ancestor.
	if n := tree.Find([]string{"address", "zip"}); !reflect.DeepEqual(n.Path, []string{"address"}) {
		t.Errorf("nearest ancestor lookup returned %v", n.Path)
	}
	// Array indices map to the items node.
	if n := tree.Find([]string{"tags", "[3]"}); !reflect.DeepEqual(n.Path, []string{"tags", "[]"}) {
		t.Errorf("index lookup returned %v", n.Path)
	}
	if n := tree.Find([]string{"wholly", "unknown"}); n != tree.Root() {
		t.Error("fully unknown path must return the root")
	}
}

func TestValidateViolations(t *testing.T) {
	def := schema.FromJSONSchema(mustSchema(t, personSchema))

	cases := []struct {
		name  string
		value string
		kind  schema.ViolationKind
		path  []string
	}{
		{"wrong root type", `[1]`, schema.ViolationWrongType, nil},
		{"missing required", `{}`, schema.ViolationMissingValue, []string{"name"}},
		{"wrong field type", `{"name":"Jo","age":"12"}`, schema.ViolationWrongType, []string{"age"}},
		{"non-integral integer", `{"name":"Jo","age":1.5}`, schema.ViolationWrongType, []string{"age"}},
		{"range", `{"name":"Jo","age":200}`, schema.ViolationRange, []string{"age"}},
		{"min length", `{"name":"J"}`, schema.ViolationRange, []string{"name"}},
		{"pattern", `{"name":"Jo","email":"nope"}`, schema.ViolationPattern, []string{"email"}},
		{"enum", `{"name":"Jo","role":"root"}`, schema.ViolationEnum, []string{"role"}},
		{"nested missing", `{"name":"Jo","address":{}}`, schema.ViolationMissingValue, []string{"address", "city"}},
		{"array item type", `{"name":"Jo","tags":[1]}`, schema.ViolationWrongType, []string{"tags", "[0]"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			violations := def.Validate(mustValue(t, tc.value))
			for _, v := range violations {
				if v.Kind == tc.kind && pathEqual(v.Path, tc.path) {
					return
				}
			}
			t.Errorf("expected %s at %v, got %v", tc.kind, tc.path, violations)
		})
	}
}

func TestValidateCleanDocument(t *testing.T) {
	def := schema.FromJSONSchema(mustSchema(t, personSchema))
	doc := `{"name":"Alice","age":30,"email":"a@b.io","role":"admin","tags":["x"],"address":{"city":"Oslo"}}`
	if violations := def.Validate(mustValue(t, doc)); len(violations) != 0 {
		t.Errorf("expected clean, got %v", violations)
	}
}

func TestUnknownKeyRejection(t *testing.T) {
	raw := `{
		"type": "object",
		"properties": {"a": {"type": "number"}},
		"additionalProperties": false
	}`
	def := schema.FromJSONSchema(mustSchema(t, raw))

	violations := def.Validate(mustValue(t, `{"a":1,"b":2}`))
	found := false
	for _, v := range violations {
		if v.Kind == schema.ViolationUnknownKey && pathEqual(v.Path, []string{"b"}) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unknown_key at [b], got %v", violations)
	}

	// Without the keyword, extra keys pass.
	open := schema.FromJSONSchema(mustSchema(t, `{"type":"object","properties":{"a":{"type":"number"}}}`))
	if violations := open.Validate(mustValue(t, `{"a":1,"b":2}`)); len(violations) != 0 {
		t.Errorf("open schema must accept extra keys, got %v", violations)
	}
}

func TestUnionValidation(t *testing.T) {
	raw := `{"anyOf":[{"type":"string"},{"type":"number"}]}`
	def := schema.FromJSONSchema(mustSchema(t, raw))

	if def.Kind() != schema.KindUnion {
		t.Errorf("kind = %v, want union", def.Kind())
	}
	if violations := def.Validate("x"); len(violations) != 0 {
		t.Errorf("string must match union, got %v", violations)
	}
	if violations := def.Validate(float64(3)); len(violations) != 0 {
		t.Errorf("number must match union, got %v", violations)
	}
	if violations := def.Validate(true); len(violations) == 0 {
		t.Error("boolean must not match union")
	}
}

func TestRefResolution(t *testing.T) {
	raw := `{
		"$ref": "#/$defs/Person",
		"$defs": {
			"Person": {
				"type": "object",
				"required": ["name"],
				"properties": {"name": {"type": "string"}}
			}
		}
	}`
	def := schema.FromJSONSchema(mustSchema(t, raw))

	if def.Kind() != schema.KindObject {
		t.Errorf("kind through $ref = %v, want object", def.Kind())
	}
	if !def.IsRequired("name") {
		t.Error("required through $ref lost")
	}
	violations := def.Validate(mustValue(t, `{"name":1}`))
	if len(violations) != 1 || violations[0].Kind != schema.ViolationWrongType {
		t.Errorf("expected wrong_type through $ref, got %v", violations)
	}
}

func TestPartialRelaxesRequiredness(t *testing.T) {
	def := schema.Partial(schema.FromJSONSchema(mustSchema(t, personSchema)))

	// Missing required fields are not reported...
	if violations := def.Validate(mustValue(t, `{}`)); len(violations) != 0 {
		t.Errorf("partial variant must tolerate missing fields, got %v", violations)
	}
	// ...including nested ones.
	if violations := def.Validate(mustValue(t, `{"name":"Jo","address":{}}`)); len(violations) != 0 {
		t.Errorf("partial variant must relax nested requiredness, got %v", violations)
	}
	// Constraints on present values stay enforced.
	violations := def.Validate(mustValue(t, `{"age":"12"}`))
	if len(violations) != 1 || violations[0].Kind != schema.ViolationWrongType {
		t.Errorf("partial variant must keep type checks, got %v", violations)
	}
	if def.IsRequired("name") {
		t.Error("partial variant must report nothing as required")
	}
}

func pathEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
