package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/km-arc/go-dispatch/framework/exceptions"
)

// Rules maps a field to a pipe-separated rule string.
//
//	validation.Rules{"email": "required|email", "age": "required|integer|gte:18"}
type Rules map[string]string

// ruleFunc reports whether value satisfies the rule. The returned message is
// added to the error bag on failure.
type ruleFunc func(in input, field, value, param string) (ok bool, message string)

// input is the flattened data under validation.
type input map[string]string

var (
	alphaRe     = regexp.MustCompile(`^[a-zA-Z]+$`)
	alphaNumRe  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	alphaDashRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	urlRe       = regexp.MustCompile(`^https?://`)
)

var truthy = map[string]bool{"true": true, "false": true, "1": true, "0": true, "yes": true, "no": true}

var rules = map[string]ruleFunc{
	"required": func(_ input, f, v, _ string) (bool, string) {
		return strings.TrimSpace(v) != "", fmt.Sprintf("The %s field is required.", f)
	},
	"string": func(input, string, string, string) (bool, string) { return true, "" },
	"numeric": func(_ input, f, v, _ string) (bool, string) {
		_, err := strconv.ParseFloat(v, 64)
		return err == nil, fmt.Sprintf("The %s must be a number.", f)
	},
	"integer": func(_ input, f, v, _ string) (bool, string) {
		_, err := strconv.Atoi(v)
		return err == nil, fmt.Sprintf("The %s must be an integer.", f)
	},
	"boolean": func(_ input, f, v, _ string) (bool, string) {
		return truthy[strings.ToLower(v)], fmt.Sprintf("The %s field must be true or false.", f)
	},
	"email": func(_ input, f, v, _ string) (bool, string) {
		_, err := mail.ParseAddress(v)
		return err == nil, fmt.Sprintf("The %s must be a valid email address.", f)
	},
	"url": func(_ input, f, v, _ string) (bool, string) {
		return urlRe.MatchString(v), fmt.Sprintf("The %s must be a valid URL.", f)
	},
	"uuid": func(_ input, f, v, _ string) (bool, string) {
		_, err := uuid.Parse(v)
		return err == nil, fmt.Sprintf("The %s must be a valid UUID.", f)
	},
	"min": func(_ input, f, v, p string) (bool, string) {
		n := atoi(p)
		return utf8.RuneCountInString(v) >= n, fmt.Sprintf("The %s must be at least %d characters.", f, n)
	},
	"max": func(_ input, f, v, p string) (bool, string) {
		n := atoi(p)
		return utf8.RuneCountInString(v) <= n, fmt.Sprintf("The %s may not be greater than %d characters.", f, n)
	},
	"size": func(_ input, f, v, p string) (bool, string) {
		n := atoi(p)
		return utf8.RuneCountInString(v) == n, fmt.Sprintf("The %s must be %d characters.", f, n)
	},
	"between": func(_ input, f, v, p string) (bool, string) {
		lo, hi, ok := strings.Cut(p, ",")
		if !ok {
			return true, ""
		}
		min, max := atoi(lo), atoi(hi)
		l := utf8.RuneCountInString(v)
		return l >= min && l <= max, fmt.Sprintf("The %s must be between %d and %d characters.", f, min, max)
	},
	"in": func(_ input, f, v, p string) (bool, string) {
		return inList(p, v), fmt.Sprintf("The selected %s is invalid.", f)
	},
	"not_in": func(_ input, f, v, p string) (bool, string) {
		return !inList(p, v), fmt.Sprintf("The selected %s is invalid.", f)
	},
	"confirmed": func(in input, f, v, _ string) (bool, string) {
		return in[f+"_confirmation"] == v, fmt.Sprintf("The %s confirmation does not match.", f)
	},
	"same": func(in input, f, v, p string) (bool, string) {
		return in[p] == v, fmt.Sprintf("The %s and %s must match.", f, p)
	},
	"different": func(in input, f, v, p string) (bool, string) {
		return in[p] != v, fmt.Sprintf("The %s and %s must be different.", f, p)
	},
	"alpha": func(_ input, f, v, _ string) (bool, string) {
		return alphaRe.MatchString(v), fmt.Sprintf("The %s may only contain letters.", f)
	},
	"alpha_num": func(_ input, f, v, _ string) (bool, string) {
		return alphaNumRe.MatchString(v), fmt.Sprintf("The %s may only contain letters and numbers.", f)
	},
	"alpha_dash": func(_ input, f, v, _ string) (bool, string) {
		return alphaDashRe.MatchString(v), fmt.Sprintf("The %s may only contain letters, numbers, dashes and underscores.", f)
	},
	"regex": func(_ input, f, v, p string) (bool, string) {
		re, err := regexp.Compile(p)
		return err == nil && re.MatchString(v), fmt.Sprintf("The %s format is invalid.", f)
	},
	"gt":  compare(func(a, b float64) bool { return a > b }, "greater than"),
	"gte": compare(func(a, b float64) bool { return a >= b }, "greater than or equal to"),
	"lt":  compare(func(a, b float64) bool { return a < b }, "less than"),
	"lte": compare(func(a, b float64) bool { return a <= b }, "less than or equal to"),
}

// ── Validator ────────────────────────────────────────────────────────────────

// Validator checks a flat set of input values against Rules.
type Validator struct {
	data   input
	rules  Rules
	errors *exceptions.ValidationError
	ran    bool
}

// Make creates a Validator over string data.
func Make(data map[string]string, r Rules) *Validator {
	return &Validator{data: data, rules: r}
}

// FromMap creates a Validator over decoded request data. Values are
// stringified; nil becomes "".
func FromMap(data map[string]any, r Rules) *Validator {
	flat := make(input, len(data))
	for k, v := range data {
		flat[k] = stringify(v)
	}
	return &Validator{data: flat, rules: r}
}

// Fails runs validation and reports whether any rule failed.
func (v *Validator) Fails() bool {
	v.validate()
	return v.errors.Has()
}

// Passes is the inverse of Fails.
func (v *Validator) Passes() bool { return !v.Fails() }

// Errors returns the error bag. It is empty when validation passed.
func (v *Validator) Errors() *exceptions.ValidationError {
	v.validate()
	return v.errors
}

// Err returns the error bag as an error, or nil when validation passed.
func (v *Validator) Err() error {
	if v.Fails() {
		return v.errors
	}
	return nil
}

func (v *Validator) validate() {
	if v.ran {
		return
	}
	v.ran = true
	v.errors = exceptions.NewValidationError()

	fields := make([]string, 0, len(v.rules))
	for f := range v.rules {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	for _, field := range fields {
		value := v.data[field]
		for _, rule := range strings.Split(v.rules[field], "|") {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}
			name, param, _ := strings.Cut(rule, ":")

			// nullable and sometimes end the chain quietly on empty values.
			if name == "nullable" || name == "sometimes" {
				if value == "" {
					break
				}
				continue
			}
			check, known := rules[name]
			if !known {
				continue
			}
			if ok, msg := check(v.data, field, value, param); !ok {
				v.errors.Add(field, msg)
				break
			}
		}
	}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func compare(op func(a, b float64) bool, phrase string) ruleFunc {
	return func(_ input, f, v, p string) (bool, string) {
		a, errA := strconv.ParseFloat(v, 64)
		b, errB := strconv.ParseFloat(p, 64)
		return errA == nil && errB == nil && op(a, b), fmt.Sprintf("The %s must be %s %s.", f, phrase, p)
	}
}

func inList(list, value string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		if len(t) > 0 {
			return t[0]
		}
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
