package errs_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/deepankarm/streamjson/pkg/internal/errs"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name string
		path []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"name"}, "name"},
		{"nested", []string{"user", "name"}, "user.name"},
		{"array index", []string{"items", "[0]"}, "items[0]"},
		{"index then key", []string{"items", "[2]", "id"}, "items[2].id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errs.JoinPath(tt.path); got != tt.want {
				t.Errorf("JoinPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidationErrorRendering(t *testing.T) {
	e := errs.ValidationError{
		Loc:     []string{"user", "age"},
		Message: "expected integer, got string",
		Type:    errs.ErrorTypeWrongType,
	}
	if got := e.Error(); got != "user.age: expected integer, got string" {
		t.Errorf("Error() = %q", got)
	}

	rootless := errs.ValidationError{Message: "expected object, got array"}
	if got := rootless.Error(); got != "expected object, got array" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidationErrorsAggregate(t *testing.T) {
	es := errs.ValidationErrors{
		{Loc: []string{"a"}, Message: "first", Type: errs.ErrorTypeRange},
		{Loc: []string{"b"}, Message: "second", Type: errs.ErrorTypeEnum},
	}
	msg := es.Error()
	if !strings.Contains(msg, "a: first") || !strings.Contains(msg, "b: second") {
		t.Errorf("Error() = %q", msg)
	}
	if len(es.Unwrap()) != 2 {
		t.Errorf("Unwrap() returned %d errors", len(es.Unwrap()))
	}
}

func TestRecoverable(t *testing.T) {
	recoverable := []errs.ErrorType{errs.ErrorTypeWrongType, errs.ErrorTypeMissingValue}
	for _, typ := range recoverable {
		if !typ.Recoverable() {
			t.Errorf("%s must be recoverable", typ)
		}
	}
	rest := []errs.ErrorType{
		errs.ErrorTypePattern, errs.ErrorTypeRange, errs.ErrorTypeEnum,
		errs.ErrorTypeUnknownKey, errs.ErrorTypeMalformed,
	}
	for _, typ := range rest {
		if typ.Recoverable() {
			t.Errorf("%s must not be recoverable", typ)
		}
	}
}

func TestStateErrorMatchesAs(t *testing.T) {
	var err error = &errs.StateError{Op: "feed fragment", State: "idle"}
	var target *errs.StateError
	if !errors.As(err, &target) {
		t.Fatal("errors.As must match")
	}
	if target.State != "idle" {
		t.Errorf("State = %q", target.State)
	}
	if !strings.Contains(err.Error(), "invalid state") {
		t.Errorf("Error() = %q", err.Error())
	}
}
