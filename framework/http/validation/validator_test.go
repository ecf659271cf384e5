package validation_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	"github.com/km-arc/go-dispatch/framework/http/validation"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type ruleCase struct {
	label string
	data  map[string]string
	ok    bool
}

// check runs every case against rules and asserts pass/fail on field.
func check(t *testing.T, field string, rules validation.Rules, cases []ruleCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			v := validation.Make(tc.data, rules)
			if got := v.Passes(); got != tc.ok {
				t.Fatalf("Passes() = %v, want %v (errors: %v)", got, tc.ok, v.Errors().Fields)
			}
			if !tc.ok && v.Errors().First(field) == "" {
				t.Errorf("expected error on %q, got %v", field, v.Errors().Fields)
			}
		})
	}
}

// ── rules ────────────────────────────────────────────────────────────────────

func TestValidation_Required(t *testing.T) {
	check(t, "name", validation.Rules{"name": "required"}, []ruleCase{
		{"non-empty", map[string]string{"name": "Alice"}, true},
		{"empty", map[string]string{"name": ""}, false},
		{"whitespace", map[string]string{"name": "   "}, false},
		{"missing", map[string]string{}, false},
	})
}

func TestValidation_Required_MessageFormat(t *testing.T) {
	v := validation.Make(map[string]string{}, validation.Rules{"name": "required"})
	if got := v.Errors().First("name"); got != "The name field is required." {
		t.Errorf("message: got %q", got)
	}
}

func TestValidation_Formats(t *testing.T) {
	check(t, "email", validation.Rules{"email": "email"}, []ruleCase{
		{"valid", map[string]string{"email": "user@example.com"}, true},
		{"no at", map[string]string{"email": "notanemail"}, false},
		{"no domain", map[string]string{"email": "user@"}, false},
	})
	check(t, "site", validation.Rules{"site": "url"}, []ruleCase{
		{"https", map[string]string{"site": "https://example.com"}, true},
		{"ftp", map[string]string{"site": "ftp://example.com"}, false},
	})
	check(t, "id", validation.Rules{"id": "uuid"}, []ruleCase{
		{"uuid", map[string]string{"id": "8c5b1f7e-2f7a-4e2b-9d6a-0e8f2b7c1a33"}, true},
		{"garbage", map[string]string{"id": "123"}, false},
	})
}

func TestValidation_Lengths(t *testing.T) {
	check(t, "name", validation.Rules{"name": "min:3"}, []ruleCase{
		{"exactly 3", map[string]string{"name": "abc"}, true},
		{"short", map[string]string{"name": "ab"}, false},
		{"unicode runes", map[string]string{"name": "héé"}, true},
	})
	check(t, "bio", validation.Rules{"bio": "max:5"}, []ruleCase{
		{"ok", map[string]string{"bio": "hello"}, true},
		{"long", map[string]string{"bio": "hello!"}, false},
	})
	check(t, "pin", validation.Rules{"pin": "size:4"}, []ruleCase{
		{"ok", map[string]string{"pin": "1234"}, true},
		{"short", map[string]string{"pin": "123"}, false},
	})
	check(t, "name", validation.Rules{"name": "between:2,4"}, []ruleCase{
		{"lower bound", map[string]string{"name": "ab"}, true},
		{"upper bound", map[string]string{"name": "abcd"}, true},
		{"over", map[string]string{"name": "abcde"}, false},
	})
}

func TestValidation_Numbers(t *testing.T) {
	check(t, "n", validation.Rules{"n": "numeric"}, []ruleCase{
		{"float", map[string]string{"n": "3.14"}, true},
		{"text", map[string]string{"n": "abc"}, false},
	})
	check(t, "n", validation.Rules{"n": "integer"}, []ruleCase{
		{"int", map[string]string{"n": "42"}, true},
		{"float", map[string]string{"n": "4.2"}, false},
	})
	check(t, "age", validation.Rules{"age": "gte:18|lt:65"}, []ruleCase{
		{"18", map[string]string{"age": "18"}, true},
		{"17", map[string]string{"age": "17"}, false},
		{"65", map[string]string{"age": "65"}, false},
		{"not a number", map[string]string{"age": "x"}, false},
	})
	check(t, "n", validation.Rules{"n": "gt:0|lte:10"}, []ruleCase{
		{"10", map[string]string{"n": "10"}, true},
		{"0", map[string]string{"n": "0"}, false},
	})
}

func TestValidation_Choices(t *testing.T) {
	check(t, "flag", validation.Rules{"flag": "boolean"}, []ruleCase{
		{"yes", map[string]string{"flag": "YES"}, true},
		{"maybe", map[string]string{"flag": "maybe"}, false},
	})
	check(t, "color", validation.Rules{"color": "in:red, green"}, []ruleCase{
		{"listed", map[string]string{"color": "green"}, true},
		{"unlisted", map[string]string{"color": "blue"}, false},
	})
	check(t, "name", validation.Rules{"name": "not_in:admin,root"}, []ruleCase{
		{"allowed", map[string]string{"name": "tom"}, true},
		{"reserved", map[string]string{"name": "root"}, false},
	})
}

func TestValidation_Comparisons(t *testing.T) {
	check(t, "password", validation.Rules{"password": "confirmed"}, []ruleCase{
		{"match", map[string]string{"password": "s", "password_confirmation": "s"}, true},
		{"mismatch", map[string]string{"password": "s", "password_confirmation": "x"}, false},
	})
	check(t, "a", validation.Rules{"a": "same:b"}, []ruleCase{
		{"same", map[string]string{"a": "1", "b": "1"}, true},
		{"differs", map[string]string{"a": "1", "b": "2"}, false},
	})
	check(t, "a", validation.Rules{"a": "different:b"}, []ruleCase{
		{"differs", map[string]string{"a": "1", "b": "2"}, true},
		{"same", map[string]string{"a": "1", "b": "1"}, false},
	})
}

func TestValidation_CharacterClasses(t *testing.T) {
	check(t, "v", validation.Rules{"v": "alpha"}, []ruleCase{
		{"letters", map[string]string{"v": "abc"}, true},
		{"digits", map[string]string{"v": "abc1"}, false},
	})
	check(t, "v", validation.Rules{"v": "alpha_num"}, []ruleCase{
		{"mixed", map[string]string{"v": "abc1"}, true},
		{"dash", map[string]string{"v": "a-1"}, false},
	})
	check(t, "v", validation.Rules{"v": "alpha_dash"}, []ruleCase{
		{"dash", map[string]string{"v": "a-1_b"}, true},
		{"space", map[string]string{"v": "a b"}, false},
	})
	check(t, "v", validation.Rules{"v": `regex:^\d{3}$`}, []ruleCase{
		{"match", map[string]string{"v": "123"}, true},
		{"no match", map[string]string{"v": "12a"}, false},
	})
}

func TestValidation_NullableAndSometimes(t *testing.T) {
	check(t, "bio", validation.Rules{"bio": "nullable|min:10"}, []ruleCase{
		{"empty", map[string]string{"bio": ""}, true},
		{"present and short", map[string]string{"bio": "short"}, false},
	})
	check(t, "nick", validation.Rules{"nick": "sometimes|min:3"}, []ruleCase{
		{"absent", map[string]string{}, true},
		{"present", map[string]string{"nick": "coolname"}, true},
	})
}

func TestValidation_StopsOnFirstFailurePerField(t *testing.T) {
	v := validation.Make(map[string]string{"email": ""}, validation.Rules{"email": "required|email"})
	if got := v.Errors().Fields["email"]; len(got) != 1 {
		t.Errorf("expected one message, got %v", got)
	}
}

// ── error bag ────────────────────────────────────────────────────────────────

func TestValidation_Chained(t *testing.T) {
	rules := validation.Rules{
		"email":    "required|email",
		"password": "required|min:8|confirmed",
		"age":      "required|integer|gte:18",
	}
	v := validation.Make(map[string]string{
		"email":    "not-an-email",
		"password": "short",
		"age":      "16",
	}, rules)

	want := map[string][]string{
		"age":      {"The age must be greater than or equal to 18."},
		"email":    {"The email must be a valid email address."},
		"password": {"The password must be at least 8 characters."},
	}
	if diff := cmp.Diff(want, v.Errors().Fields); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestValidation_Err(t *testing.T) {
	ok := validation.Make(map[string]string{"name": "Alice"}, validation.Rules{"name": "required"})
	if ok.Err() != nil {
		t.Errorf("expected nil, got %v", ok.Err())
	}

	bad := validation.Make(map[string]string{}, validation.Rules{"name": "required"})
	var ve *exceptions.ValidationError
	if !errors.As(bad.Err(), &ve) || ve.StatusCode() != 422 {
		t.Errorf("expected *ValidationError with 422, got %v", bad.Err())
	}
}

func TestValidation_FromMap(t *testing.T) {
	v := validation.FromMap(map[string]any{
		"age":   float64(21),
		"admin": true,
		"tags":  []string{"a"},
		"bio":   nil,
	}, validation.Rules{"age": "integer|gte:18", "admin": "boolean", "tags": "required", "bio": "nullable|min:3"})

	if !v.Passes() {
		t.Errorf("expected pass, got %v", v.Errors().Fields)
	}
}
