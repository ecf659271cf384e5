package kernel

import (
	"reflect"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-dispatch/framework/container"
	"github.com/km-arc/go-dispatch/framework/logging"
	"github.com/km-arc/go-dispatch/framework/metadata"
	"github.com/km-arc/go-dispatch/framework/pipeline"
	"github.com/km-arc/go-dispatch/framework/routing"
)

var (
	// ErrHandlerNotFound is returned when a route names a method the
	// controller does not have.
	ErrHandlerNotFound = errors.New("handler method not found")
	// ErrInvalidHandler is returned for handler signatures the kernel
	// cannot call.
	ErrInvalidHandler = errors.New("invalid handler signature")
)

// ── Compiled enhancers ───────────────────────────────────────────────────────

type enhancers struct {
	guards       []metadata.Producer[pipeline.Guard]
	pipes        []metadata.Producer[pipeline.Pipe]
	interceptors []metadata.Producer[pipeline.Interceptor]
	filters      filterList
}

func compileEnhancers(c *container.Container, e metadata.Enhancers) (enhancers, error) {
	var (
		out enhancers
		err error
	)
	if out.guards, err = metadata.CompileAll[pipeline.Guard](c, e.Guards); err != nil {
		return out, errors.Wrap(err, "guards")
	}
	if out.pipes, err = metadata.CompileAll[pipeline.Pipe](c, e.Pipes); err != nil {
		return out, errors.Wrap(err, "pipes")
	}
	if out.interceptors, err = metadata.CompileAll[pipeline.Interceptor](c, e.Interceptors); err != nil {
		return out, errors.Wrap(err, "interceptors")
	}
	if out.filters, err = metadata.CompileAll[pipeline.Filter](c, e.Filters); err != nil {
		return out, errors.Wrap(err, "filters")
	}
	return out, nil
}

// filterList resolves lazily; a filter that cannot be produced, or whose
// producer panics, is skipped.
type filterList []metadata.Producer[pipeline.Filter]

func (fl filterList) resolve(ec *pipeline.ExecutionContext, log zerolog.Logger) []pipeline.Filter {
	out := make([]pipeline.Filter, 0, len(fl))
	for _, p := range fl {
		f, err := pipeline.ProtectValue(pipeline.StageFilter, func() (pipeline.Filter, error) { return p(ec.Context()) })
		if err != nil {
			log.Warn().Err(err).Str(logging.FieldRequestID, ec.ID()).Msg("exception filter unavailable")
			continue
		}
		out = append(out, f)
	}
	return out
}

// ── Routes ───────────────────────────────────────────────────────────────────

type param struct {
	meta    pipeline.ArgumentMetadata
	factory metadata.CustomFactory
	// pipes is global, controller, method then parameter pipes.
	pipes [][]metadata.Producer[pipeline.Pipe]
}

type route struct {
	entry  *routing.Entry
	handle pipeline.Handle

	fn        reflect.Value
	params    []param
	returns   int // number of results
	lastIsErr bool

	status  int
	headers map[string]string

	guards            []metadata.Producer[pipeline.Guard]
	interceptors      []metadata.Producer[pipeline.Interceptor]
	methodFilters     filterList
	controllerFilters filterList
}

var errorType = reflect.TypeFor[error]()

// Register resolves the controller instance and adds its routes.
func (k *Kernel) Register(ctrl *metadata.Controller) error {
	var (
		instance any
		err      error
	)
	if ctrl.Constructor != nil {
		instance, err = k.container.Resolve(ctrl.Constructor)
	} else {
		instance, err = k.container.Resolve(ctrl.Type)
	}
	if err != nil {
		return errors.Wrapf(err, "controller %s", ctrl.Type)
	}

	local, err := compileEnhancers(k.container, ctrl.Enhancers)
	if err != nil {
		return errors.Wrapf(err, "controller %s", ctrl.Type)
	}

	for _, r := range ctrl.Routes {
		rt, err := k.compileRoute(ctrl, instance, local, r)
		if err != nil {
			return errors.Wrapf(err, "route %s %s -> %s.%s", r.Method, r.Path, ctrl.Type, r.Handler)
		}
		k.routes = append(k.routes, rt)
		k.log.Info().
			Str("method", rt.entry.Method).
			Str(logging.FieldRoute, rt.entry.Path).
			Str(logging.FieldHandler, r.Handler).
			Msg("mapped route")
	}
	return nil
}

func (k *Kernel) compileRoute(ctrl *metadata.Controller, instance any, local enhancers, r *metadata.Route) (*route, error) {
	fn := reflect.ValueOf(instance).MethodByName(r.Handler)
	if !fn.IsValid() {
		return nil, errors.Wrapf(ErrHandlerNotFound, "%T has no method %q", instance, r.Handler)
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, errors.Wrap(ErrInvalidHandler, "variadic handlers are not supported")
	}
	switch {
	case ft.NumOut() > 2:
		return nil, errors.Wrapf(ErrInvalidHandler, "%d results", ft.NumOut())
	case ft.NumOut() == 2 && ft.Out(1) != errorType:
		return nil, errors.Wrap(ErrInvalidHandler, "second result must be error")
	}
	if len(r.Params) > ft.NumIn() {
		return nil, errors.Wrapf(ErrInvalidHandler, "%d bindings for %d arguments", len(r.Params), ft.NumIn())
	}

	method, err := compileEnhancers(k.container, r.Enhancers)
	if err != nil {
		return nil, err
	}

	rt := &route{
		fn:                fn,
		returns:           ft.NumOut(),
		lastIsErr:         ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errorType,
		status:            r.Status,
		headers:           r.Headers,
		guards:            concat(k.globals.guards, local.guards, method.guards),
		interceptors:      concat(k.globals.interceptors, local.interceptors, method.interceptors),
		methodFilters:     method.filters,
		controllerFilters: local.filters,
	}

	for i := 0; i < ft.NumIn(); i++ {
		b := metadata.Auto()
		if i < len(r.Params) {
			b = r.Params[i]
		}
		own, err := metadata.CompileAll[pipeline.Pipe](k.container, b.Pipes)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
		if b.Kind == pipeline.ParamCustom && b.Factory == nil {
			return nil, errors.Wrapf(ErrInvalidHandler, "argument %d: custom binding without factory", i)
		}
		rt.params = append(rt.params, param{
			meta:    pipeline.ArgumentMetadata{Kind: b.Kind, Type: ft.In(i), Key: b.Key, Index: i, Data: b.Data},
			factory: b.Factory,
			pipes:   [][]metadata.Producer[pipeline.Pipe]{k.globals.pipes, local.pipes, method.pipes, own},
		})
	}

	entry, err := k.table.Add(routing.Entry{
		Method:         r.Method,
		Path:           routing.Normalize(k.prefix, ctrl.Path, r.Path),
		Handler:        fn,
		Controller:     instance,
		ControllerType: ctrl.Type,
		MethodName:     r.Handler,
	})
	if err != nil {
		return nil, err
	}
	rt.entry = entry
	rt.handle = pipeline.Handle{
		Controller:     ctrl.Type,
		Method:         r.Handler,
		Route:          entry.Path,
		ControllerMeta: ctrl.Metadata,
		HandlerMeta:    r.Metadata,
	}
	return rt, nil
}

func concat[T any](groups ...[]T) []T { return slices.Concat(groups...) }
