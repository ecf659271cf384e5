// Package pipes contains the built-in argument pipes. Every pipe works on
// the raw extracted value (a string for path, query and header bindings, a
// decoded JSON value for bodies) and returns the transformed value the
// kernel then coerces to the handler's parameter type.
//
//	ctrl.Get("/:id", "FindOne").Bind(metadata.Path("id", pipes.ParseInt()))
//	ctrl.Get("/", "Search").Bind(metadata.Query("active", pipes.DefaultValue("true"), pipes.ParseBool()))
package pipes

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

// ── Parsers ──────────────────────────────────────────────────────────────────

// ParseInt converts a numeric string into an int.
func ParseInt() pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, _ pipeline.ArgumentMetadata) (any, error) {
		switch v := value.(type) {
		case int:
			return v, nil
		case float64:
			if v == math.Trunc(v) {
				return int(v), nil
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, nil
			}
		}
		return nil, exceptions.BadRequest("Validation failed (numeric string is expected)")
	})
}

// ParseFloat converts a numeric string into a float64.
func ParseFloat() pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, _ pipeline.ArgumentMetadata) (any, error) {
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, nil
			}
		}
		return nil, exceptions.BadRequest("Validation failed (numeric string is expected)")
	})
}

// ParseBool accepts "true" and "false" (and real booleans).
func ParseBool() pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, _ pipeline.ArgumentMetadata) (any, error) {
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch v {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, exceptions.BadRequest("Validation failed (boolean string is expected)")
	})
}

// ParseUUID converts a string into a uuid.UUID.
func ParseUUID() pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, _ pipeline.ArgumentMetadata) (any, error) {
		switch v := value.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			if id, err := uuid.Parse(v); err == nil {
				return id, nil
			}
		}
		return nil, exceptions.BadRequest("Validation failed (uuid is expected)")
	})
}

// ParseEnum accepts only one of allowed.
func ParseEnum(allowed ...string) pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, _ pipeline.ArgumentMetadata) (any, error) {
		if s, ok := value.(string); ok && slices.Contains(allowed, s) {
			return s, nil
		}
		return nil, exceptions.BadRequest(fmt.Sprintf("Validation failed (%s is expected)", strings.Join(allowed, ", ")))
	})
}

// ── Transformers ─────────────────────────────────────────────────────────────

// DefaultValue replaces a missing or empty value with v. Put it before the
// parsers of an optional parameter.
func DefaultValue(v any) pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, _ pipeline.ArgumentMetadata) (any, error) {
		if value == nil || value == "" {
			return v, nil
		}
		return value, nil
	})
}

// Trim trims surrounding whitespace from strings, including the string
// values of a decoded JSON object.
func Trim() pipeline.Pipe {
	return pipeline.PipeFunc(func(value any, _ pipeline.ArgumentMetadata) (any, error) {
		return trim(value), nil
	})
}

func trim(value any) any {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = trim(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = strings.TrimSpace(item)
		}
		return out
	}
	return value
}
