package container

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Register binds services into the container. Boot is called after ALL
// providers have been registered, so it is safe to resolve other services
// there.
//
//	type MetricsProvider struct{ container.BaseProvider }
//
//	func (p *MetricsProvider) Register(c *container.Container) error {
//	    return c.Instance("metrics.registry", prometheus.NewRegistry())
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	// Do NOT resolve other bindings here; use Boot for that.
	Register(c *Container) error

	// Boot is called after all providers are registered.
	Boot(ctx context.Context, c *Container) error

	// Provides returns the tokens this provider registers. Used for
	// deferred (lazy) loading; nil for eager providers.
	Provides() []string

	// IsDeferred returns true if the provider should only be registered
	// when one of its Provides() tokens is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot, Provides and
// IsDeferred implementations.
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Container) error { return nil }
func (p *BaseProvider) Provides() []string                     { return nil }
func (p *BaseProvider) IsDeferred() bool                       { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred ones.
type ProviderRegistry struct {
	c          *Container
	mu         sync.Mutex
	eager      []ServiceProvider
	deferred   map[string]ServiceProvider // token → provider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to c.
func NewProviderRegistry(c *Container) *ProviderRegistry {
	return &ProviderRegistry{
		c:          c,
		deferred:   make(map[string]ServiceProvider),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method (unless deferred).
// Registering the same provider twice is a no-op.
func (r *ProviderRegistry) Register(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, token := range provider.Provides() {
			r.deferred[token] = provider
		}
		r.mu.Unlock()
		return r.interceptDeferred(ctx, provider)
	}

	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	if err := provider.Register(r.c); err != nil {
		return errors.Wrapf(err, "registering provider %T", provider)
	}
	// Late providers boot immediately.
	if booted {
		return provider.Boot(ctx, r.c)
	}
	return nil
}

// interceptDeferred binds a lazy factory for each deferred token. The first
// resolution registers (and boots) the provider for real.
func (r *ProviderRegistry) interceptDeferred(ctx context.Context, provider ServiceProvider) error {
	for _, token := range provider.Provides() {
		err := r.c.Factory(token, func(Resolver) (any, error) {
			if err := r.load(ctx, provider); err != nil {
				return nil, err
			}
			// Fresh resolution: the real binding replaced this factory.
			return r.c.Resolve(token)
		}, AsTransient())
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ProviderRegistry) load(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	pending := false
	for token, p := range r.deferred {
		if p == provider {
			pending = true
			delete(r.deferred, token)
		}
	}
	booted := r.booted
	r.mu.Unlock()

	if !pending {
		return nil
	}
	if err := provider.Register(r.c); err != nil {
		return errors.Wrapf(err, "registering deferred provider %T", provider)
	}
	if booted {
		return provider.Boot(ctx, r.c)
	}
	return nil
}

// Boot calls Boot on all eager providers, once.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(ctx, r.c); err != nil {
			return errors.Wrapf(err, "booting provider %T", provider)
		}
	}
	return nil
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
