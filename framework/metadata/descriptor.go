package metadata

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/km-arc/go-dispatch/framework/container"
)

// ErrInvalidDescriptor is returned when a descriptor cannot produce the
// kind of enhancer it was registered as.
var ErrInvalidDescriptor = errors.New("invalid enhancer descriptor")

type descriptorKind int

const (
	kindType descriptorKind = iota + 1
	kindConstructor
	kindInstance
	kindFactory
)

// Descriptor names a guard, pipe, interceptor or filter. It is one of a
// type resolved through the container, a constructor, a ready instance, or
// a factory called per request.
type Descriptor struct {
	kind     descriptorKind
	typ      reflect.Type
	ctor     any
	instance any
	factory  func(ctx context.Context) (any, error)
}

// Type describes an enhancer resolved from the container by type. T is
// usually a pointer to a struct; unregistered types are built directly.
//
//	metadata.Type[*RolesGuard]()
func Type[T any]() Descriptor {
	return Descriptor{kind: kindType, typ: reflect.TypeFor[T]()}
}

// TypeOf is Type for a reflect.Type known only at runtime.
func TypeOf(t reflect.Type) Descriptor { return Descriptor{kind: kindType, typ: t} }

// Constructor describes an enhancer built by ctor with container-resolved
// arguments.
func Constructor(ctor any) Descriptor { return Descriptor{kind: kindConstructor, ctor: ctor} }

// Instance describes a ready enhancer value.
func Instance(v any) Descriptor { return Descriptor{kind: kindInstance, instance: v} }

// Factory describes an enhancer produced by f on every request.
func Factory(f func(ctx context.Context) (any, error)) Descriptor {
	return Descriptor{kind: kindFactory, factory: f}
}

// Use normalizes a builder argument into a Descriptor: descriptors pass
// through, reflect.Type values become Type descriptors, unnamed funcs become
// Constructors and anything else, pipeline.GuardFunc and friends included,
// is an Instance.
func Use(v any) Descriptor {
	switch t := v.(type) {
	case Descriptor:
		return t
	case reflect.Type:
		return TypeOf(t)
	}
	if t := reflect.TypeOf(v); t != nil && t.Kind() == reflect.Func && t.Name() == "" {
		return Constructor(v)
	}
	return Instance(v)
}

func useAll(items []any) []Descriptor {
	out := make([]Descriptor, len(items))
	for i, it := range items {
		out[i] = Use(it)
	}
	return out
}

func (d Descriptor) String() string {
	switch d.kind {
	case kindType:
		return d.typ.String()
	case kindConstructor:
		return reflect.TypeOf(d.ctor).String()
	case kindInstance:
		return reflect.TypeOf(d.instance).String()
	case kindFactory:
		return "factory"
	}
	return "invalid"
}

// Producer returns an enhancer instance for one request.
type Producer[T any] func(ctx context.Context) (T, error)

// Compile checks d against T once and returns its producer. Type and
// constructor descriptors resolve through c on each call, so singletons are
// shared and transients are fresh.
func Compile[T any](c *container.Container, d Descriptor) (Producer[T], error) {
	want := reflect.TypeFor[T]()

	switch d.kind {
	case kindInstance:
		v, ok := d.instance.(T)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidDescriptor, "%T does not implement %s", d.instance, want)
		}
		return func(context.Context) (T, error) { return v, nil }, nil

	case kindType:
		if d.typ == nil || !d.typ.Implements(want) {
			return nil, errors.Wrapf(ErrInvalidDescriptor, "%s does not implement %s", d, want)
		}
		return resolving[T](c, d.typ), nil

	case kindConstructor:
		ft := reflect.TypeOf(d.ctor)
		if ft == nil || ft.Kind() != reflect.Func || ft.NumOut() == 0 || !ft.Out(0).Implements(want) {
			return nil, errors.Wrapf(ErrInvalidDescriptor, "constructor %s does not return %s", d, want)
		}
		return resolving[T](c, d.ctor), nil

	case kindFactory:
		f := d.factory
		return func(ctx context.Context) (T, error) {
			var zero T
			v, err := f(ctx)
			if err != nil {
				return zero, err
			}
			out, ok := v.(T)
			if !ok {
				return zero, errors.Wrapf(ErrInvalidDescriptor, "factory returned %T, want %s", v, want)
			}
			return out, nil
		}, nil
	}
	return nil, errors.Wrap(ErrInvalidDescriptor, "empty descriptor")
}

// CompileAll compiles every descriptor, stopping at the first error.
func CompileAll[T any](c *container.Container, ds []Descriptor) ([]Producer[T], error) {
	out := make([]Producer[T], 0, len(ds))
	for _, d := range ds {
		p, err := Compile[T](c, d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ProduceAll calls each producer in order.
func ProduceAll[T any](ctx context.Context, ps []Producer[T]) ([]T, error) {
	out := make([]T, 0, len(ps))
	for _, p := range ps {
		v, err := p(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// resolving resolves target (a reflect.Type or constructor) per call.
func resolving[T any](c *container.Container, target any) Producer[T] {
	return func(context.Context) (T, error) {
		var zero T
		v, err := c.Resolve(target)
		if err != nil {
			return zero, err
		}
		out, ok := v.(T)
		if !ok {
			return zero, errors.Wrapf(ErrInvalidDescriptor, "resolved %T, want %s", v, reflect.TypeFor[T]())
		}
		return out, nil
	}
}
