package kernel

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-dispatch/framework/container"
	"github.com/km-arc/go-dispatch/framework/exceptions"
	gohttp "github.com/km-arc/go-dispatch/framework/http"
	"github.com/km-arc/go-dispatch/framework/logging"
	"github.com/km-arc/go-dispatch/framework/metadata"
	"github.com/km-arc/go-dispatch/framework/pipeline"
	"github.com/km-arc/go-dispatch/framework/routing"
)

// Options configures a Kernel.
type Options struct {
	// GlobalPrefix is prepended to every route path.
	GlobalPrefix string
	// Globals are the application-wide enhancers.
	Globals metadata.Enhancers
	// DefaultFilter replaces pipeline.DefaultFilter.
	DefaultFilter pipeline.Filter
	Logger        zerolog.Logger
}

// Kernel dispatches requests through the pipeline:
//
//	match → guards → pipes → interceptors(handler) → response
//
// with failures sent to the exception filters. Routes are registered during
// bootstrap; the kernel is read-only once it serves traffic.
type Kernel struct {
	container  *container.Container
	table      *routing.Table
	routes     []*route
	prefix     string
	globals    enhancers
	exceptions *pipeline.ExceptionHandler
	log        zerolog.Logger
}

// New creates a kernel and compiles the global enhancers.
func New(c *container.Container, opts Options) (*Kernel, error) {
	log := logging.Component(opts.Logger, "kernel")
	globals, err := compileEnhancers(c, opts.Globals)
	if err != nil {
		return nil, err
	}
	return &Kernel{
		container:  c,
		table:      routing.NewTable(),
		prefix:     opts.GlobalPrefix,
		globals:    globals,
		exceptions: &pipeline.ExceptionHandler{Default: opts.DefaultFilter, Logger: log},
		log:        log,
	}, nil
}

// Routes returns the registered route entries in match order.
func (k *Kernel) Routes() []*routing.Entry { return k.table.Entries() }

// ServeHTTP runs one request through the pipeline. It always writes exactly
// one response unless the handler wrote to the raw writer itself.
func (k *Kernel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entry, params, ok := k.table.Match(r.Method, r.URL.Path)
	if !ok {
		ec := pipeline.NewExecutionContext(w, r)
		if allowed := k.table.Allowed(r.URL.Path); len(allowed) > 0 {
			k.log.Debug().
				Str(logging.FieldRequestID, ec.ID()).
				Str("method", r.Method).
				Strs("allowed", allowed).
				Msg("no route for method")
		}
		err := exceptions.RouteNotFound(r.Method, r.URL.Path)
		k.write(ec, k.exceptions.Handle(ec, err, k.globals.filters.resolve(ec, k.log)))
		return
	}

	rt := k.routes[entry.ID]
	ec := pipeline.NewExecutionContext(w, gohttp.WithRouteParams(r, params)).Bind(rt.handle)
	res := k.dispatch(ec, rt)
	if ec.Writer().Written() {
		return
	}
	k.write(ec, res)
}

// dispatch produces the response for a matched route.
func (k *Kernel) dispatch(ec *pipeline.ExecutionContext, rt *route) *gohttp.Response {
	result, err := k.run(ec, rt)
	if err != nil {
		return k.fail(ec, rt, err)
	}
	if ec.Writer().Written() {
		return nil
	}
	return rt.shape(result)
}

func (k *Kernel) run(ec *pipeline.ExecutionContext, rt *route) (any, error) {
	ctx := ec.Context()

	guards, err := produce(ctx, pipeline.StageGuard, rt.guards)
	if err != nil {
		return nil, err
	}
	if err := pipeline.RunGuards(ec, guards); err != nil {
		return nil, err
	}

	args, err := k.arguments(ec, rt)
	if err != nil {
		return nil, err
	}

	interceptors, err := produce(ctx, pipeline.StageInterceptor, rt.interceptors)
	if err != nil {
		return nil, err
	}
	terminal := pipeline.HandlerFunc(func() (any, error) { return rt.invoke(args) })
	return pipeline.Chain(ec, interceptors, terminal).Handle()
}

// produce builds per-request enhancers. A producer that panics fails the
// request like any other stage.
func produce[T any](ctx context.Context, stage string, ps []metadata.Producer[T]) ([]T, error) {
	return pipeline.ProtectValue(stage, func() ([]T, error) { return metadata.ProduceAll(ctx, ps) })
}

// fail runs the exception filters: method, controller, then global.
func (k *Kernel) fail(ec *pipeline.ExecutionContext, rt *route, err error) *gohttp.Response {
	status := exceptions.Status(err)
	ev := k.log.Debug()
	if status >= http.StatusInternalServerError {
		ev = k.log.Error()
	}
	ev.Err(err).
		Str(logging.FieldRequestID, ec.ID()).
		Str(logging.FieldRoute, rt.entry.Path).
		Str(logging.FieldHandler, rt.entry.MethodName).
		Int(logging.FieldStatus, status).
		Msg("request failed")

	return k.exceptions.Handle(ec, err,
		rt.methodFilters.resolve(ec, k.log),
		rt.controllerFilters.resolve(ec, k.log),
		k.globals.filters.resolve(ec, k.log),
	)
}

// write sends res. An encoding failure is itself run through the default
// filter, then the terminal fallback.
func (k *Kernel) write(ec *pipeline.ExecutionContext, res *gohttp.Response) {
	if res == nil {
		return
	}
	err := res.Write(ec.Writer())
	if err == nil {
		return
	}
	k.log.Error().Err(err).Str(logging.FieldRequestID, ec.ID()).Msg("response encoding failed")
	if ec.Writer().Written() {
		return
	}
	if err := k.exceptions.Handle(ec, errors.Wrap(err, "encoding response")).Write(ec.Writer()); err != nil {
		_ = pipeline.Fallback().Write(ec.Writer())
	}
}
