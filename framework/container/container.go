package container

import (
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// ── Errors ────────────────────────────────────────────────────────────────────

var (
	// ErrNotRegistered is returned when a string token (or an interface type)
	// has no provider and cannot be instantiated directly.
	ErrNotRegistered = errors.New("service not found")

	// ErrCircularDependency is returned when a constructor transitively
	// depends on itself.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrInvalidConstructor is returned at registration time for values that
	// are not usable constructors.
	ErrInvalidConstructor = errors.New("invalid constructor")
)

// ── Scopes ────────────────────────────────────────────────────────────────────

// Scope controls instance caching.
type Scope int

const (
	// Singleton instances are built once and cached (the default).
	Singleton Scope = iota
	// Transient instances are built on every resolution.
	Transient
)

func (s Scope) String() string {
	if s == Transient {
		return "transient"
	}
	return "singleton"
}

// ScopeMarker may be implemented by a provided type to declare its own
// scope. The method is called on a zero value, so it must not touch fields.
//
//	func (*RequestCounter) InjectionScope() container.Scope { return container.Transient }
type ScopeMarker interface {
	InjectionScope() Scope
}

// ── Binding types ─────────────────────────────────────────────────────────────

// Resolver resolves a token, a reflect.Type, or a constructor function.
type Resolver interface {
	Resolve(target any) (any, error)
}

// Factory builds a value using a Resolver. Resolutions made through r share
// the caller's dependency path, so cycles through factories are detected too.
type Factory func(r Resolver) (any, error)

// Option customizes a registration.
type Option func(*provider)

// AsTransient builds a fresh instance on every resolution.
func AsTransient() Option { return func(p *provider) { p.scope = Transient; p.scopeSet = true } }

// AsSingleton caches the first built instance.
func AsSingleton() Option { return func(p *provider) { p.scope = Singleton; p.scopeSet = true } }

// WithTags groups the registration under one or more tags.
func WithTags(tags ...string) Option {
	return func(p *provider) { p.tags = append(p.tags, tags...) }
}

// provider holds one registration.
type provider struct {
	key      string
	ctor     reflect.Value // constructor func, when registered with one
	typ      reflect.Type  // pointer-to-struct, for direct instantiation
	factory  Factory
	scope    Scope
	scopeSet bool
	tags     []string
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the dependency injection container.
//
// It owns two mappings: token → provider (registrations) and
// token → instance (the singleton cache). Tokens are strings or types;
// constructors are keyed by the type they return.
//
// Concurrent first resolution of the same singleton may run its constructor
// more than once. The first instance stored wins and every caller receives it.
type Container struct {
	mu sync.RWMutex

	providers map[string]*provider
	instances map[string]any
	aliases   map[string]string
	tags      map[string][]string

	afterResolving []func(key string, instance any)
}

// New creates an empty container.
func New() *Container {
	c := &Container{}
	c.reset()
	return c
}

func (c *Container) reset() {
	c.providers = make(map[string]*provider)
	c.instances = make(map[string]any)
	c.aliases = make(map[string]string)
	c.tags = make(map[string][]string)
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register stores a constructor under a string token. Registering the same
// token again replaces the constructor and drops any cached instance.
//
//	c.Register("cats.repository", NewCatsRepository)
func (c *Container) Register(token string, ctor any, opts ...Option) error {
	p, err := newProvider(token, ctor)
	if err != nil {
		return err
	}
	c.store(p, opts)
	return nil
}

// Provide registers a constructor under the type it returns.
//
//	c.Provide(NewCatsService) // resolvable as reflect.TypeFor[*CatsService]()
func (c *Container) Provide(ctor any, opts ...Option) error {
	fn := reflect.ValueOf(ctor)
	if err := validateConstructor(fn); err != nil {
		return err
	}
	p, _ := newProvider(TypeKey(fn.Type().Out(0)), ctor)
	c.store(p, opts)
	return nil
}

// ProvideType registers a pointer-to-struct type for direct instantiation.
// Fields tagged `inject:""` are resolved by type, `inject:"token"` by token.
func (c *Container) ProvideType(t reflect.Type, opts ...Option) error {
	if !isStructPointer(t) {
		return errors.Wrapf(ErrInvalidConstructor, "%s is not a pointer to a struct", t)
	}
	c.store(&provider{key: TypeKey(t), typ: t}, opts)
	return nil
}

// Factory registers a factory function under a token.
func (c *Container) Factory(token any, f Factory, opts ...Option) error {
	key, err := keyOf(token)
	if err != nil {
		return err
	}
	if f == nil {
		return errors.Wrapf(ErrInvalidConstructor, "nil factory for %s", key)
	}
	c.store(&provider{key: key, factory: f}, opts)
	return nil
}

// Instance registers a pre-built value as a singleton.
//
//	c.Instance("config", cfg)
func (c *Container) Instance(token any, instance any) error {
	key, err := keyOf(token)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key = c.canonical(key)
	delete(c.providers, key)
	c.instances[key] = instance
	return nil
}

// Alias registers an alternative name for a token.
func (c *Container) Alias(token any, alias string) error {
	key, err := keyOf(token)
	if err != nil {
		return err
	}
	if key == alias {
		return errors.Newf("container: [%s] is aliased to itself", alias)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[alias] = c.canonical(key)
	return nil
}

// Tag associates tokens under a named group.
func (c *Container) Tag(tag string, tokens ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tokens {
		key, err := keyOf(t)
		if err != nil {
			return err
		}
		c.tags[tag] = append(c.tags[tag], key)
	}
	return nil
}

func (c *Container) store(p *provider, opts []Option) {
	for _, opt := range opts {
		opt(p)
	}
	if !p.scopeSet {
		p.scope = markedScope(p.resultType())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(p.key)
	p.key = key
	delete(c.instances, key)
	c.providers[key] = p
	for _, tag := range p.tags {
		if !slices.Contains(c.tags[tag], key) {
			c.tags[tag] = append(c.tags[tag], key)
		}
	}
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns an instance for a string token, a reflect.Type, or a
// constructor function. Constructors are always resolvable: when they are
// not registered they are invoked directly with their dependencies resolved.
// A constructor is looked up by its result type, so when another provider is
// registered for that type, that provider's instance is returned and the
// given constructor is not called.
//
//	svc, err := c.Resolve(reflect.TypeFor[*CatsService]())
//	repo, err := c.Resolve("cats.repository")
//	ctrl, err := c.Resolve(NewCatsController)
func (c *Container) Resolve(target any) (any, error) {
	return c.resolve(target, nil)
}

// Tagged resolves every token registered under a tag, in registration order.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	keys := slices.Clone(c.tags[tag])
	c.mu.RUnlock()

	out := make([]any, 0, len(keys))
	for _, key := range keys {
		inst, err := c.resolveKey(key, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (c *Container) resolve(target any, path []string) (any, error) {
	switch t := target.(type) {
	case nil:
		return nil, errors.Wrap(ErrNotRegistered, "nil token")
	case string:
		return c.resolveKey(t, path)
	case reflect.Type:
		return c.resolveType(t, path)
	}

	fn := reflect.ValueOf(target)
	if fn.Kind() != reflect.Func {
		return nil, errors.Wrapf(ErrInvalidConstructor, "cannot resolve %T", target)
	}
	if err := validateConstructor(fn); err != nil {
		return nil, err
	}
	key := TypeKey(fn.Type().Out(0))
	if inst, p, ok := c.lookup(key); ok {
		if p == nil {
			return inst, nil
		}
		return c.build(p, path)
	}
	p, _ := newProvider(key, target)
	p.scope = markedScope(p.resultType())
	return c.build(p, path)
}

func (c *Container) resolveKey(token string, path []string) (any, error) {
	inst, p, ok := c.lookup(token)
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "no provider for [%s]", token)
	}
	if p == nil {
		return inst, nil
	}
	return c.build(p, path)
}

func (c *Container) resolveType(t reflect.Type, path []string) (any, error) {
	key := TypeKey(t)
	if inst, p, ok := c.lookup(key); ok {
		if p == nil {
			return inst, nil
		}
		return c.build(p, path)
	}
	if !isStructPointer(t) {
		return nil, errors.Wrapf(ErrNotRegistered, "no provider for type %s", t)
	}
	// Unregistered concrete types are instantiated directly.
	return c.build(&provider{key: key, typ: t, scope: markedScope(t)}, path)
}

// lookup returns a cached instance, or the provider to build one.
func (c *Container) lookup(token string) (any, *provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(token)
	if inst, ok := c.instances[key]; ok {
		return inst, nil, true
	}
	p, ok := c.providers[key]
	return nil, p, ok
}

func (c *Container) build(p *provider, path []string) (any, error) {
	if slices.Contains(path, p.key) {
		chain := strings.Join(append(slices.Clone(path), p.key), " -> ")
		return nil, errors.Wrapf(ErrCircularDependency, "%s", chain)
	}
	path = append(slices.Clone(path), p.key)

	var (
		instance any
		err      error
	)
	switch {
	case p.factory != nil:
		instance, err = p.factory(&resolution{c: c, path: path})
	case p.ctor.IsValid():
		instance, err = c.call(p.ctor, path)
	default:
		instance, err = c.construct(p.typ, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "resolving [%s]", p.key)
	}

	if p.scope == Singleton {
		c.mu.Lock()
		if existing, ok := c.instances[p.key]; ok {
			instance = existing
		} else {
			c.instances[p.key] = instance
		}
		c.mu.Unlock()
	}

	c.fireAfterResolving(p.key, instance)
	return instance, nil
}

// call invokes a constructor with its parameters resolved by type.
func (c *Container) call(fn reflect.Value, path []string) (any, error) {
	ft := fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		arg, err := c.dependency(ft.In(i), "", path)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %d (%s)", i, ft.In(i))
		}
		args[i] = arg
	}

	out := fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// construct allocates a struct and fills its inject-tagged fields.
func (c *Container) construct(t reflect.Type, path []string) (any, error) {
	v := reflect.New(t.Elem())
	st := t.Elem()
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		token, ok := field.Tag.Lookup("inject")
		if !ok || !field.IsExported() {
			continue
		}
		dep, err := c.dependency(field.Type, token, path)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s.%s", st.Name(), field.Name)
		}
		v.Elem().Field(i).Set(dep)
	}
	return v.Interface(), nil
}

// dependency resolves one constructor parameter or struct field.
// Primitive types resolve to their zero value as a placeholder.
func (c *Container) dependency(t reflect.Type, token string, path []string) (reflect.Value, error) {
	if token == "" && isPrimitive(t) {
		return reflect.Zero(t), nil
	}
	if token == "" && (t == containerType || t == resolverType) {
		return reflect.ValueOf(c), nil
	}

	var (
		inst any
		err  error
	)
	if token != "" {
		inst, err = c.resolveKey(token, path)
	} else {
		inst, err = c.resolveType(t, path)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	if inst == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(inst)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, errors.Newf("container: %s resolved to %s", t, v.Type())
	}
	return v, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Has returns true if a token has a provider or a cached instance.
func (c *Container) Has(token any) bool {
	key, err := keyOf(token)
	if err != nil {
		return false
	}
	_, _, ok := c.lookup(key)
	return ok
}

// Resolved returns true if a singleton instance is cached for the token.
func (c *Container) Resolved(token any) bool {
	key, err := keyOf(token)
	if err != nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[c.canonical(key)]
	return ok
}

// Instances returns every cached singleton instance.
func (c *Container) Instances() []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]any, 0, len(c.instances))
	for _, inst := range c.instances {
		out = append(out, inst)
	}
	return out
}

// Tokens returns all registered keys, sorted (for debugging).
func (c *Container) Tokens() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.providers)+len(c.instances))
	for k := range c.providers {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, dup := c.providers[k]; !dup {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Clear resets the entire container.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// AfterResolving registers a callback fired after any token is built.
func (c *Container) AfterResolving(cb func(key string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(key string, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, instance)
	}
}

// canonical resolves an alias to its canonical key (caller holds mu).
func (c *Container) canonical(key string) string {
	if target, ok := c.aliases[key]; ok {
		return target
	}
	return key
}

// resolution is a Resolver bound to an in-progress dependency path.
type resolution struct {
	c    *Container
	path []string
}

func (r *resolution) Resolve(target any) (any, error) {
	return r.c.resolve(target, r.path)
}

var (
	containerType = reflect.TypeFor[*Container]()
	resolverType  = reflect.TypeFor[Resolver]()
	errorType     = reflect.TypeFor[error]()
)

func newProvider(key string, ctor any) (*provider, error) {
	fn := reflect.ValueOf(ctor)
	if err := validateConstructor(fn); err != nil {
		return nil, errors.Wrapf(err, "registering [%s]", key)
	}
	return &provider{key: key, ctor: fn}, nil
}

func (p *provider) resultType() reflect.Type {
	switch {
	case p.ctor.IsValid():
		return p.ctor.Type().Out(0)
	case p.typ != nil:
		return p.typ
	}
	return nil
}

func validateConstructor(fn reflect.Value) error {
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return errors.Wrap(ErrInvalidConstructor, "constructor must be a non-nil function")
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return errors.Wrapf(ErrInvalidConstructor, "%s is variadic", ft)
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return errors.Wrapf(ErrInvalidConstructor, "%s: second result must be error", ft)
		}
	default:
		return errors.Wrapf(ErrInvalidConstructor, "%s must return (T) or (T, error)", ft)
	}
	return nil
}

func markedScope(t reflect.Type) Scope {
	if t == nil || t.Kind() != reflect.Pointer {
		return Singleton
	}
	zero := reflect.New(t.Elem()).Interface()
	if m, ok := zero.(ScopeMarker); ok {
		return m.InjectionScope()
	}
	return Singleton
}

func isStructPointer(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}

func isPrimitive(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

func keyOf(token any) (string, error) {
	switch t := token.(type) {
	case string:
		if t == "" {
			return "", errors.New("container: empty token")
		}
		return t, nil
	case reflect.Type:
		return TypeKey(t), nil
	}
	return "", errors.Newf("container: unsupported token type %T", token)
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified name of t, used as the token for
// type-keyed registrations.
//
//	container.TypeKey(reflect.TypeFor[*CatsService]()) // "*example.com/cats.CatsService"
func TypeKey(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + TypeKey(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve resolves T by its type and type-asserts the result.
//
//	svc, err := container.Resolve[*CatsService](c)
func Resolve[T any](c *Container) (T, error) {
	var zero T
	inst, err := c.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, errors.Newf("container: Resolve[%T] resolved to %T", zero, inst)
	}
	return typed, nil
}

// ResolveToken resolves a string token and type-asserts the result.
func ResolveToken[T any](c *Container, token string) (T, error) {
	var zero T
	inst, err := c.Resolve(token)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, errors.Newf("container: [%s] resolved to %T, want %T", token, inst, zero)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure. Intended for bootstrap
// code where a missing service is a programming error.
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}
