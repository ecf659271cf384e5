// Package container provides the dependency injection container used to
// resolve every participant of the request pipeline: services, controllers,
// guards, pipes, interceptors and exception filters.
//
// # Tokens
//
// A token is either a string or a reflect.Type. Constructors are registered
// under the type of their first result:
//
//	c := container.New()
//	c.Provide(NewCatsRepository)            // func(*sql.DB) *CatsRepository
//	c.Register("mailer", NewSMTPMailer)     // string token
//	c.Instance("config", cfg)               // pre-built value
//	c.Alias("mailer", "mail")
//
// # Resolving
//
//	svc, err := c.Resolve(reflect.TypeFor[*CatsService]())
//	svc, err := container.Resolve[*CatsService](c)  // generic
//	m, err   := container.ResolveToken[Mailer](c, "mailer")
//
// Constructor parameters are resolved recursively by type. Parameters of a
// primitive kind (string, bool, numbers) receive their zero value. Types that
// were never registered are still resolvable when they are pointers to
// structs: the struct is allocated and its `inject` tagged fields are filled.
//
//	type CatsController struct {
//	    Service *CatsService `inject:""`
//	    Mailer  Mailer       `inject:"mailer"`
//	}
//
// Resolving a string token nobody registered fails with ErrNotRegistered.
// A constructor that transitively depends on itself fails with
// ErrCircularDependency instead of recursing forever.
//
// # Scopes
//
// Singleton is the default. Transient registrations build a new instance on
// every resolution:
//
//	c.Provide(NewRequestCounter, container.AsTransient())
//
// A type may also declare its scope by implementing ScopeMarker.
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(c *container.Container) error {
//	    return c.Provide(NewMailer)
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(ctx, &AppServiceProvider{})
//	registry.Boot(ctx)
//
// Deferred providers (IsDeferred returns true) are only registered when one
// of their Provides() tokens is first resolved.
package container
