package pipeline

import (
	"context"
	"net/http"
	"reflect"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	gohttp "github.com/km-arc/go-dispatch/framework/http"
)

// RequestIDHeader is read when the host did not assign a request id.
const RequestIDHeader = "X-Request-Id"

// ExecutionContext describes the request being dispatched. One is created per
// request and discarded once the response is written.
type ExecutionContext struct {
	id      string
	request *gohttp.Request
	writer  *gohttp.StatusWriter

	controller reflect.Type
	handler    string
	route      string

	controllerMeta map[string]any
	handlerMeta    map[string]any

	mu     sync.RWMutex
	values map[any]any
}

// NewExecutionContext wraps w and r. Route parameters must already be
// attached to r (see gohttp.WithRouteParams).
func NewExecutionContext(w http.ResponseWriter, r *http.Request) *ExecutionContext {
	id := middleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get(RequestIDHeader)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &ExecutionContext{
		id:      id,
		request: gohttp.NewRequest(r),
		writer:  gohttp.NewStatusWriter(w),
	}
}

// Handle describes the route a request matched.
type Handle struct {
	Controller     reflect.Type
	Method         string
	Route          string
	ControllerMeta map[string]any
	HandlerMeta    map[string]any
}

// Bind records the matched handler.
func (ec *ExecutionContext) Bind(h Handle) *ExecutionContext {
	ec.controller = h.Controller
	ec.handler = h.Method
	ec.route = h.Route
	ec.controllerMeta = h.ControllerMeta
	ec.handlerMeta = h.HandlerMeta
	return ec
}

func (ec *ExecutionContext) ID() string                   { return ec.id }
func (ec *ExecutionContext) Context() context.Context     { return ec.request.Context() }
func (ec *ExecutionContext) Request() *gohttp.Request     { return ec.request }
func (ec *ExecutionContext) Raw() *http.Request           { return ec.request.Raw() }
func (ec *ExecutionContext) Writer() *gohttp.StatusWriter { return ec.writer }

// Controller returns the controller type, or nil before a route matched.
func (ec *ExecutionContext) Controller() reflect.Type { return ec.controller }

// Handler returns the handler method name.
func (ec *ExecutionContext) Handler() string { return ec.handler }

// Route returns the matched route pattern.
func (ec *ExecutionContext) Route() string { return ec.route }

// HandlerMetadata returns a value set on the route.
func (ec *ExecutionContext) HandlerMetadata(key string) (any, bool) {
	v, ok := ec.handlerMeta[key]
	return v, ok
}

// ControllerMetadata returns a value set on the controller.
func (ec *ExecutionContext) ControllerMetadata(key string) (any, bool) {
	v, ok := ec.controllerMeta[key]
	return v, ok
}

// Set stores a per-request value, e.g. authenticated claims.
func (ec *ExecutionContext) Set(key, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.values == nil {
		ec.values = make(map[any]any)
	}
	ec.values[key] = value
}

// Get returns a value stored with Set.
func (ec *ExecutionContext) Get(key any) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.values[key]
	return v, ok
}

// Logger returns the request logger installed by the host, tagged with the
// request id.
func (ec *ExecutionContext) Logger() *zerolog.Logger {
	l := zerolog.Ctx(ec.Context()).With().Str("request_id", ec.id).Logger()
	return &l
}
