package metadata

import "github.com/km-arc/go-dispatch/framework/pipeline"

// Get returns the route metadata value for key as T.
func Get[T any](ec *pipeline.ExecutionContext, key string) (T, bool) {
	v, ok := ec.HandlerMetadata(key)
	return as[T](v, ok)
}

// GetAllAndOverride returns the route value for key, falling back to the
// controller value.
//
//	roles, _ := metadata.GetAllAndOverride[[]string](ec, "roles")
func GetAllAndOverride[T any](ec *pipeline.ExecutionContext, key string) (T, bool) {
	if v, ok := ec.HandlerMetadata(key); ok {
		return as[T](v, ok)
	}
	v, ok := ec.ControllerMetadata(key)
	return as[T](v, ok)
}

// GetAllAndMerge concatenates slice values from the controller and route.
func GetAllAndMerge[E any](ec *pipeline.ExecutionContext, key string) []E {
	var out []E
	if v, ok := ec.ControllerMetadata(key); ok {
		if s, ok := v.([]E); ok {
			out = append(out, s...)
		}
	}
	if v, ok := ec.HandlerMetadata(key); ok {
		if s, ok := v.([]E); ok {
			out = append(out, s...)
		}
	}
	return out
}

func as[T any](v any, ok bool) (T, bool) {
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
