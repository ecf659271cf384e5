package pipeline

// CallHandler is the lazily evaluated inner step of an interceptor chain.
// Handle runs everything below the current interceptor, the route handler
// included.
type CallHandler interface {
	Handle() (any, error)
}

// HandlerFunc adapts a function to CallHandler.
type HandlerFunc func() (any, error)

func (f HandlerFunc) Handle() (any, error) { return f() }

// Interceptor wraps handler execution. It may call next and pass the result
// through, transform it, recover its error, or return without calling next.
type Interceptor interface {
	Intercept(ec *ExecutionContext, next CallHandler) (any, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ec *ExecutionContext, next CallHandler) (any, error)

func (f InterceptorFunc) Intercept(ec *ExecutionContext, next CallHandler) (any, error) {
	return f(ec, next)
}

// Chain composes interceptors around terminal, right to left: the first
// interceptor is outermost, so it runs first and finishes last.
//
//	Chain(ec, []Interceptor{A, B}, h) // A → B → h → B → A
func Chain(ec *ExecutionContext, interceptors []Interceptor, terminal CallHandler) CallHandler {
	next := terminal
	for i := len(interceptors) - 1; i >= 0; i-- {
		ic, inner := interceptors[i], next
		next = HandlerFunc(func() (any, error) {
			return ProtectValue(StageInterceptor, func() (any, error) { return ic.Intercept(ec, inner) })
		})
	}
	return next
}

// Map returns an interceptor that transforms a successful result.
//
//	pipeline.Map(func(v any) (any, error) { return map[string]any{"data": v}, nil })
func Map(fn func(v any) (any, error)) Interceptor {
	return InterceptorFunc(func(_ *ExecutionContext, next CallHandler) (any, error) {
		v, err := next.Handle()
		if err != nil {
			return nil, err
		}
		return fn(v)
	})
}
