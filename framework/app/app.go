// Package app is the application context: it owns the container, the
// configuration, the logger and the global enhancer lists, turns a module
// tree into a live kernel and hosts it on a chi router.
//
//	application, err := app.New(AppModule)
//	application.SetGlobalPrefix("api")
//	application.UseGlobalFilters(HttpErrorFilter{})
//	if err := application.Init(ctx); err != nil { ... }
//	err = application.Listen(ctx, "")
package app

import (
	"context"
	"net/http"
	"reflect"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-dispatch/framework/config"
	"github.com/km-arc/go-dispatch/framework/container"
	gohttp "github.com/km-arc/go-dispatch/framework/http"
	"github.com/km-arc/go-dispatch/framework/kernel"
	"github.com/km-arc/go-dispatch/framework/logging"
	"github.com/km-arc/go-dispatch/framework/metadata"
	"github.com/km-arc/go-dispatch/framework/module"
	"github.com/km-arc/go-dispatch/framework/pipeline"
	"github.com/km-arc/go-dispatch/framework/providers"
)

// ErrInitialized is returned when the application is configured after Init.
var ErrInitialized = errors.New("application already initialized")

// Application is the application context. Configure it between New and
// Init; after Init its route table and global lists are read-only.
type Application struct {
	root      *module.Module
	container *container.Container
	registry  *container.ProviderRegistry
	config    *config.Config
	log       zerolog.Logger
	hasLogger bool

	prefix        string
	globals       metadata.Enhancers
	defaultFilter pipeline.Filter
	tracing       []sdktrace.TracerProviderOption

	mu          sync.Mutex
	kernel      *kernel.Kernel
	router      chi.Router
	hooks       []any
	initialized bool
	closed      bool
}

// Option configures an Application.
type Option func(*Application)

// WithConfig uses cfg instead of loading the configuration from the
// environment.
func WithConfig(cfg *config.Config) Option { return func(a *Application) { a.config = cfg } }

// WithLogger replaces the logger built from the configuration.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Application) { a.log = l; a.hasLogger = true }
}

// WithContainer uses an existing container.
func WithContainer(c *container.Container) Option { return func(a *Application) { a.container = c } }

// WithTracing adds SDK options, typically span processors wrapping an
// exporter, to the tracer provider built when tracing is enabled.
func WithTracing(opts ...sdktrace.TracerProviderOption) Option {
	return func(a *Application) { a.tracing = append(a.tracing, opts...) }
}

// WithDefaultFilter replaces the built-in default exception filter.
func WithDefaultFilter(f pipeline.Filter) Option {
	return func(a *Application) { a.defaultFilter = f }
}

// New creates the application context for the module tree rooted at root.
func New(root *module.Module, opts ...Option) (*Application, error) {
	if root == nil {
		return nil, errors.New("app: nil root module")
	}
	a := &Application{root: root}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		a.config = cfg
	}
	if !a.hasLogger {
		a.log = logging.New(a.config.Log, nil)
	}
	if a.container == nil {
		a.container = container.New()
	}
	a.registry = container.NewProviderRegistry(a.container)
	a.prefix = a.config.App.Prefix
	return a, nil
}

func (a *Application) Container() *container.Container { return a.container }
func (a *Application) Config() *config.Config          { return a.config }
func (a *Application) Logger() zerolog.Logger          { return a.log }

// ── Global configuration ─────────────────────────────────────────────────────

// SetGlobalPrefix prepends prefix to every route path.
func (a *Application) SetGlobalPrefix(prefix string) error {
	return a.configure(func() { a.prefix = prefix })
}

// UseGlobalGuards appends guards that run before every controller guard.
// Items are anything metadata.Use accepts.
func (a *Application) UseGlobalGuards(items ...any) error {
	return a.configure(func() { a.globals.Guards = appendUse(a.globals.Guards, items) })
}

// UseGlobalPipes appends pipes that run first for every bound argument.
func (a *Application) UseGlobalPipes(items ...any) error {
	return a.configure(func() { a.globals.Pipes = appendUse(a.globals.Pipes, items) })
}

// UseGlobalInterceptors appends the outermost interceptors.
func (a *Application) UseGlobalInterceptors(items ...any) error {
	return a.configure(func() { a.globals.Interceptors = appendUse(a.globals.Interceptors, items) })
}

// UseGlobalFilters appends the filters tried after method and controller
// filters.
func (a *Application) UseGlobalFilters(items ...any) error {
	return a.configure(func() { a.globals.Filters = appendUse(a.globals.Filters, items) })
}

func (a *Application) configure(fn func()) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return ErrInitialized
	}
	fn()
	return nil
}

func appendUse(ds []metadata.Descriptor, items []any) []metadata.Descriptor {
	for _, item := range items {
		ds = append(ds, metadata.Use(item))
	}
	return ds
}

// ── Bootstrap ────────────────────────────────────────────────────────────────

// Init registers the framework and module providers, boots the service
// providers, compiles every controller into the kernel and runs the
// OnModuleInit then OnApplicationBootstrap hooks. Calling it again is a
// no-op.
func (a *Application) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}

	framework := []container.ServiceProvider{
		&providers.ConfigProvider{Config: a.config},
		&providers.LoggerProvider{Logger: a.log},
		&providers.MetricsProvider{Config: a.config.Metrics},
		&providers.TracerProvider{Config: a.config.Tracing, Options: a.tracing},
	}
	for _, p := range framework {
		if err := a.registry.Register(ctx, p); err != nil {
			return err
		}
		a.hooks = append(a.hooks, p)
	}

	var (
		targets     []any
		controllers []*metadata.Controller
	)
	err := module.Walk(a.root, func(m *module.Module) error {
		for _, p := range m.Providers {
			if err := p.Register(a.container); err != nil {
				return err
			}
			targets = append(targets, p.Target())
		}
		for _, s := range m.Services {
			if err := a.registry.Register(ctx, s); err != nil {
				return err
			}
			a.hooks = append(a.hooks, s)
		}
		controllers = append(controllers, m.Controllers...)
		return nil
	})
	if err != nil {
		return err
	}
	if err := a.registry.Boot(ctx); err != nil {
		return err
	}

	k, err := kernel.New(a.container, kernel.Options{
		GlobalPrefix:  a.prefix,
		Globals:       a.globals,
		DefaultFilter: a.defaultFilter,
		Logger:        a.log,
	})
	if err != nil {
		return err
	}
	for _, ctrl := range controllers {
		if err := k.Register(ctrl); err != nil {
			return err
		}
		targets = append(targets, controllerTarget(ctrl))
	}

	for _, target := range targets {
		inst, err := a.container.Resolve(target)
		if err != nil {
			return errors.Wrapf(err, "instantiating %v", target)
		}
		a.hooks = append(a.hooks, inst)
	}
	a.hooks = dedupe(a.hooks)

	if err := a.runHooks(ctx, "OnModuleInit", func(h any) (bool, error) {
		if x, ok := h.(module.OnModuleInit); ok {
			return true, x.OnModuleInit(ctx)
		}
		return false, nil
	}); err != nil {
		return err
	}
	if err := a.runHooks(ctx, "OnApplicationBootstrap", func(h any) (bool, error) {
		if x, ok := h.(module.OnApplicationBootstrap); ok {
			return true, x.OnApplicationBootstrap(ctx)
		}
		return false, nil
	}); err != nil {
		return err
	}

	a.kernel = k
	a.router = a.host()
	a.initialized = true
	a.log.Info().
		Str(logging.FieldComponent, "app").
		Int("routes", len(k.Routes())).
		Msg("application initialized")
	return nil
}

func controllerTarget(ctrl *metadata.Controller) any {
	if ctrl.Constructor != nil {
		return ctrl.Constructor
	}
	return ctrl.Type
}

// dedupe keeps the first occurrence of every comparable instance.
func dedupe(items []any) []any {
	seen := make(map[any]bool, len(items))
	return slices.DeleteFunc(items, func(v any) bool {
		if v == nil {
			return true
		}
		if !reflect.TypeOf(v).Comparable() {
			return false
		}
		if seen[v] {
			return true
		}
		seen[v] = true
		return false
	})
}

func (a *Application) runHooks(_ context.Context, name string, call func(any) (bool, error)) error {
	for _, h := range a.hooks {
		called, err := call(h)
		if err != nil {
			return errors.Wrapf(err, "%s %T", name, h)
		}
		if called {
			a.log.Debug().Str(logging.FieldComponent, "app").Str("hook", name).Str("target", reflect.TypeOf(h).String()).Msg("lifecycle hook")
		}
	}
	return nil
}

// Routes returns the mapped routes. It is empty before Init.
func (a *Application) Routes() []*RouteInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.kernel == nil {
		return nil
	}
	var out []*RouteInfo
	for _, e := range a.kernel.Routes() {
		out = append(out, &RouteInfo{Method: e.Method, Path: e.Path, Controller: e.ControllerType, Handler: e.MethodName})
	}
	return out
}

// RouteInfo describes one mapped route.
type RouteInfo struct {
	Method     string
	Path       string
	Controller reflect.Type
	Handler    string
}

// ── HTTP host ────────────────────────────────────────────────────────────────

// Handler returns the HTTP handler serving the application. Before Init it
// answers every request with 503.
func (a *Application) Handler() http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.router == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = gohttp.Error(http.StatusServiceUnavailable, "Application not initialized").Write(w)
		})
	}
	return a.router
}

func (a *Application) host() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(logging.Middleware(a.log)...)
	r.Use(middleware.Recoverer)

	if m := a.config.Metrics; m.Enabled && m.Path != "" {
		if reg, err := container.Resolve[*prometheus.Registry](a.container); err == nil {
			r.Method(http.MethodGet, m.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		} else {
			a.log.Warn().Err(err).Msg("metrics endpoint disabled")
		}
	}
	r.Handle("/*", a.kernel)
	return r
}

// Listen serves the application on addr (the configured port when empty)
// until ctx is done, then shuts the server down gracefully and runs the
// OnApplicationShutdown hooks. Init is called if it was not already.
func (a *Application) Listen(ctx context.Context, addr string) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	if addr == "" {
		addr = a.config.Addr()
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", addr).Str("env", a.config.App.Env).Msgf("%s listening", a.config.App.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serving http")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.Server.ShutdownTimeout)
		defer cancel()
		a.log.Info().Msg("shutting down")
		if err := srv.Shutdown(sctx); err != nil {
			return errors.Wrap(err, "shutting down http server")
		}
		return a.Close(sctx)
	})
	return g.Wait()
}

// Close runs the OnApplicationShutdown hooks in reverse registration order.
// Every hook runs; their errors are joined. Calling it again is a no-op.
func (a *Application) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	hooks := slices.Clone(a.hooks)
	a.mu.Unlock()

	var errs []error
	for _, h := range slices.Backward(hooks) {
		if x, ok := h.(module.OnApplicationShutdown); ok {
			if err := x.OnApplicationShutdown(ctx); err != nil {
				errs = append(errs, errors.Wrapf(err, "OnApplicationShutdown %T", h))
			}
		}
	}
	return errors.Join(errs...)
}
