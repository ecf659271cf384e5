package pipes

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	gohttp "github.com/km-arc/go-dispatch/framework/http"
	"github.com/km-arc/go-dispatch/framework/http/validation"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Validation decodes the value into T and checks its `validate` struct
// tags. Failures become a 422 ValidationError keyed by JSON field name.
//
//	type CreateCat struct {
//	    Name string `json:"name" validate:"required,min=2"`
//	    Age  int    `json:"age"  validate:"gte=0"`
//	}
//
//	ctrl.Post("/", "Create").Bind(metadata.Body("", pipes.Validation[CreateCat]()))
func Validation[T any]() pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, _ pipeline.ArgumentMetadata) (any, error) {
		var dst T
		if value == nil {
			return nil, exceptions.BadRequest("Validation failed (body is expected)")
		}
		if err := gohttp.Convert(value, &dst); err != nil {
			return nil, exceptions.BadRequest("Validation failed (malformed payload)").WithCause(err)
		}
		target := reflect.ValueOf(dst)
		if target.Kind() == reflect.Pointer {
			target = target.Elem()
		}
		if target.Kind() != reflect.Struct {
			return dst, nil
		}
		if err := structValidator().Struct(dst); err != nil {
			return nil, translate(err)
		}
		return dst, nil
	})
}

func translate(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return errors.Wrap(err, "validating struct")
	}
	bag := exceptions.NewValidationError()
	for _, fe := range fields {
		bag.Add(fieldName(fe), message(fe))
	}
	return bag
}

// fieldName is the namespace without the root struct name, e.g. "owner.name".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", f)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", f)
	case "uuid", "uuid4":
		return fmt.Sprintf("The %s must be a valid UUID.", f)
	case "url":
		return fmt.Sprintf("The %s must be a valid URL.", f)
	case "min":
		return fmt.Sprintf("The %s must be at least %s.", f, fe.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s.", f, fe.Param())
	case "len":
		return fmt.Sprintf("The %s must be %s.", f, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", f, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s must be greater than or equal to %s.", f, fe.Param())
	case "lt":
		return fmt.Sprintf("The %s must be less than %s.", f, fe.Param())
	case "lte":
		return fmt.Sprintf("The %s must be less than or equal to %s.", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", f)
	}
	return fmt.Sprintf("The %s field is invalid.", f)
}

// Rules checks the value against rule strings. A decoded object is checked
// field by field; a scalar is checked under the binding's key.
//
//	metadata.Body("", pipes.Rules(validation.Rules{"name": "required|min:2"}))
//	metadata.Query("page", pipes.Rules(validation.Rules{"page": "nullable|integer|gte:1"}))
func Rules(r validation.Rules) pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, meta pipeline.ArgumentMetadata) (any, error) {
		var data map[string]any
		switch v := value.(type) {
		case map[string]any:
			data = v
		case map[string]string:
			data = make(map[string]any, len(v))
			for k, s := range v {
				data[k] = s
			}
		default:
			data = map[string]any{meta.Key: v}
		}
		if err := validation.FromMap(data, r).Err(); err != nil {
			return nil, err
		}
		return value, nil
	})
}
