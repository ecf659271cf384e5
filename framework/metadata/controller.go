package metadata

import (
	"net/http"
	"reflect"

	"github.com/km-arc/go-dispatch/framework/routing"
)

// Enhancers groups the descriptors attached to one scope.
type Enhancers struct {
	Guards       []Descriptor
	Pipes        []Descriptor
	Interceptors []Descriptor
	Filters      []Descriptor
}

// Controller is the metadata record of one controller: its path prefix,
// its routes and the enhancers shared by all of them.
type Controller struct {
	Path string
	// Type is the controller's type, usually a pointer to struct. The
	// instance is resolved from the container.
	Type reflect.Type
	// Constructor, when set, builds the controller instead of Type.
	Constructor any

	Routes    []*Route
	Enhancers Enhancers
	Metadata  map[string]any
}

// NewController starts a controller record for T.
//
//	metadata.NewController[*CatsController]("cats").
//	    UseGuards(metadata.Type[*AuthGuard]())
func NewController[T any](path string) *Controller {
	return &Controller{Path: path, Type: reflect.TypeFor[T](), Metadata: map[string]any{}}
}

// NewControllerFunc starts a controller record built by ctor.
func NewControllerFunc(path string, ctor any) *Controller {
	t := reflect.TypeOf(ctor)
	return &Controller{Path: path, Type: t.Out(0), Constructor: ctor, Metadata: map[string]any{}}
}

func (c *Controller) UseGuards(items ...any) *Controller {
	c.Enhancers.Guards = append(c.Enhancers.Guards, useAll(items)...)
	return c
}

func (c *Controller) UsePipes(items ...any) *Controller {
	c.Enhancers.Pipes = append(c.Enhancers.Pipes, useAll(items)...)
	return c
}

func (c *Controller) UseInterceptors(items ...any) *Controller {
	c.Enhancers.Interceptors = append(c.Enhancers.Interceptors, useAll(items)...)
	return c
}

func (c *Controller) UseFilters(items ...any) *Controller {
	c.Enhancers.Filters = append(c.Enhancers.Filters, useAll(items)...)
	return c
}

// SetMetadata attaches a key/value readable by guards and interceptors
// through Get and GetAllAndOverride.
func (c *Controller) SetMetadata(key string, value any) *Controller {
	c.Metadata[key] = value
	return c
}

// Handle adds a route served by the controller method named handler.
func (c *Controller) Handle(method, path, handler string) *Route {
	r := &Route{Method: method, Path: path, Handler: handler, Headers: map[string]string{}, Metadata: map[string]any{}}
	c.Routes = append(c.Routes, r)
	return r
}

func (c *Controller) Get(path, handler string) *Route { return c.Handle(http.MethodGet, path, handler) }
func (c *Controller) Post(path, handler string) *Route {
	return c.Handle(http.MethodPost, path, handler)
}
func (c *Controller) Put(path, handler string) *Route { return c.Handle(http.MethodPut, path, handler) }
func (c *Controller) Patch(path, handler string) *Route {
	return c.Handle(http.MethodPatch, path, handler)
}
func (c *Controller) Delete(path, handler string) *Route {
	return c.Handle(http.MethodDelete, path, handler)
}
func (c *Controller) Head(path, handler string) *Route {
	return c.Handle(http.MethodHead, path, handler)
}
func (c *Controller) Options(path, handler string) *Route {
	return c.Handle(http.MethodOptions, path, handler)
}

// All matches every HTTP method.
func (c *Controller) All(path, handler string) *Route {
	return c.Handle(routing.MethodAll, path, handler)
}

// Route is the metadata record of one handler.
type Route struct {
	Method  string
	Path    string
	Handler string

	// Params binds handler arguments by position. Arguments past the end
	// are unbound.
	Params []Param

	// Status overrides the default response status (200, or 201 for POST).
	Status    int
	Headers   map[string]string
	Enhancers Enhancers
	Metadata  map[string]any
}

// Bind declares the handler's argument bindings in order.
//
//	cats.Get(":id", "FindOne").Bind(metadata.Path("id", pipes.ParseInt()))
func (r *Route) Bind(params ...Param) *Route {
	r.Params = append(r.Params, params...)
	return r
}

// HTTPCode sets the success status.
func (r *Route) HTTPCode(status int) *Route {
	r.Status = status
	return r
}

// Header sets a response header on success.
func (r *Route) Header(key, value string) *Route {
	r.Headers[key] = value
	return r
}

func (r *Route) UseGuards(items ...any) *Route {
	r.Enhancers.Guards = append(r.Enhancers.Guards, useAll(items)...)
	return r
}

func (r *Route) UsePipes(items ...any) *Route {
	r.Enhancers.Pipes = append(r.Enhancers.Pipes, useAll(items)...)
	return r
}

func (r *Route) UseInterceptors(items ...any) *Route {
	r.Enhancers.Interceptors = append(r.Enhancers.Interceptors, useAll(items)...)
	return r
}

func (r *Route) UseFilters(items ...any) *Route {
	r.Enhancers.Filters = append(r.Enhancers.Filters, useAll(items)...)
	return r
}

// SetMetadata attaches a key/value to this route.
func (r *Route) SetMetadata(key string, value any) *Route {
	r.Metadata[key] = value
	return r
}
