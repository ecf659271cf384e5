// Package module describes the application as a tree of modules. Each
// module lists the modules it imports, the providers it registers in the
// container and the controllers it exposes.
//
//	var CatsModule = &module.Module{
//	    Name:        "cats",
//	    Providers:   []module.Provider{module.Class(NewCatsService)},
//	    Controllers: []*metadata.Controller{catsController},
//	}
//
//	var AppModule = &module.Module{Name: "app", Imports: []*module.Module{CatsModule}}
package module

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/km-arc/go-dispatch/framework/container"
	"github.com/km-arc/go-dispatch/framework/metadata"
)

// ErrEmptyProvider is returned for a Provider with nothing to register.
var ErrEmptyProvider = errors.New("provider has no constructor, value or factory")

// Module is one node of the module tree.
type Module struct {
	Name        string
	Imports     []*Module
	Providers   []Provider
	Controllers []*metadata.Controller
	// Services are service providers registered with the application's
	// provider registry (eager or deferred).
	Services []container.ServiceProvider
}

// Provider is one container registration.
type Provider struct {
	// Token is a string or reflect.Type. Empty means "the constructor's
	// result type" for Class providers.
	Token   any
	ctor    any
	value   any
	factory container.Factory
	opts    []container.Option
}

// Class registers a constructor under its result type.
//
//	module.Class(NewCatsService)
//	module.Class(NewRequestCounter, container.AsTransient())
func Class(ctor any, opts ...container.Option) Provider {
	return Provider{ctor: ctor, opts: opts}
}

// Named registers a constructor under a string token.
func Named(token string, ctor any, opts ...container.Option) Provider {
	return Provider{Token: token, ctor: ctor, opts: opts}
}

// Value registers a ready instance.
func Value(token, v any) Provider {
	return Provider{Token: token, value: v}
}

// FactoryOf registers a factory.
func FactoryOf(token any, f container.Factory, opts ...container.Option) Provider {
	return Provider{Token: token, factory: f, opts: opts}
}

// Register adds the provider to c.
func (p Provider) Register(c *container.Container) error {
	switch {
	case p.factory != nil:
		return c.Factory(p.Token, p.factory, p.opts...)
	case p.value != nil:
		return c.Instance(p.Token, p.value)
	case p.ctor != nil:
		if token, ok := p.Token.(string); ok && token != "" {
			return c.Register(token, p.ctor, p.opts...)
		}
		return c.Provide(p.ctor, p.opts...)
	}
	return ErrEmptyProvider
}

// Target is what Resolve should be asked for to get this provider.
func (p Provider) Target() any {
	if p.Token != nil && p.Token != "" {
		return p.Token
	}
	return p.ctor
}

// Walk visits every module reachable from root once, imports before the
// importing module, in declaration order. Import cycles are followed once.
func Walk(root *Module, fn func(*Module) error) error {
	seen := make(map[*Module]bool)
	var visit func(m *Module) error
	visit = func(m *Module) error {
		if m == nil || seen[m] {
			return nil
		}
		seen[m] = true
		for _, imp := range m.Imports {
			if err := visit(imp); err != nil {
				return err
			}
		}
		if err := fn(m); err != nil {
			return errors.Wrapf(err, "module %s", m.Name)
		}
		return nil
	}
	return visit(root)
}

// ── Lifecycle hooks ──────────────────────────────────────────────────────────

// OnModuleInit is called on providers and controllers once every module is
// registered.
type OnModuleInit interface {
	OnModuleInit(ctx context.Context) error
}

// OnApplicationBootstrap is called after every OnModuleInit hook.
type OnApplicationBootstrap interface {
	OnApplicationBootstrap(ctx context.Context) error
}

// OnApplicationShutdown is called when the application closes.
type OnApplicationShutdown interface {
	OnApplicationShutdown(ctx context.Context) error
}
