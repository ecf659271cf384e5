package metadata

import "github.com/km-arc/go-dispatch/framework/pipeline"

// CustomFactory extracts a custom argument from the request.
type CustomFactory func(data any, ec *pipeline.ExecutionContext) (any, error)

// Param binds one handler argument.
type Param struct {
	Kind    pipeline.ParamKind
	Key     string
	Pipes   []Descriptor
	Factory CustomFactory
	Data    any
}

// Path binds a route parameter, or the whole parameter map when key is "".
func Path(key string, pipes ...any) Param {
	return Param{Kind: pipeline.ParamPath, Key: key, Pipes: useAll(pipes)}
}

// Query binds a query value, or all query values when key is "".
func Query(key string, pipes ...any) Param {
	return Param{Kind: pipeline.ParamQuery, Key: key, Pipes: useAll(pipes)}
}

// Body binds a body field, or the whole body when key is "".
func Body(key string, pipes ...any) Param {
	return Param{Kind: pipeline.ParamBody, Key: key, Pipes: useAll(pipes)}
}

// Headers binds a header, or all headers when key is "".
func Headers(key string, pipes ...any) Param {
	return Param{Kind: pipeline.ParamHeaders, Key: key, Pipes: useAll(pipes)}
}

// Custom binds the value returned by f.
//
//	user := func(_ any, ec *pipeline.ExecutionContext) (any, error) {
//	    v, _ := ec.Get("user")
//	    return v, nil
//	}
//	cats.Get("me", "Me").Bind(metadata.Custom(user, nil))
func Custom(f CustomFactory, data any, pipes ...any) Param {
	return Param{Kind: pipeline.ParamCustom, Factory: f, Data: data, Pipes: useAll(pipes)}
}

// Req binds the raw *http.Request (or *gohttp.Request, by argument type).
func Req() Param { return Param{Kind: pipeline.ParamRequest} }

// Res binds the http.ResponseWriter. A handler that writes to it skips
// response shaping.
func Res() Param { return Param{Kind: pipeline.ParamResponse} }

// Ctx binds the request context.Context (or *pipeline.ExecutionContext).
func Ctx() Param { return Param{Kind: pipeline.ParamContext} }

// Auto leaves the argument unbound; it is filled by type.
func Auto() Param { return Param{Kind: pipeline.ParamNone} }
