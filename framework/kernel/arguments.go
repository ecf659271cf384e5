package kernel

import (
	"context"
	"net/http"
	"reflect"
	"strconv"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	gohttp "github.com/km-arc/go-dispatch/framework/http"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

var (
	rawRequestType  = reflect.TypeFor[*http.Request]()
	requestType     = reflect.TypeFor[*gohttp.Request]()
	writerType      = reflect.TypeFor[http.ResponseWriter]()
	contextType     = reflect.TypeFor[context.Context]()
	execContextType = reflect.TypeFor[*pipeline.ExecutionContext]()
)

// arguments builds the handler arguments in order. A failing pipe aborts
// the whole request.
func (k *Kernel) arguments(ec *pipeline.ExecutionContext, rt *route) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(rt.params))
	for i, p := range rt.params {
		v, err := k.argument(ec, p)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (k *Kernel) argument(ec *pipeline.ExecutionContext, p param) (reflect.Value, error) {
	raw, err := extract(ec, p)
	if err != nil {
		return reflect.Value{}, err
	}
	if !p.meta.Kind.Transformable() {
		return coerce(raw, p.meta.Type)
	}

	groups := make([][]pipeline.Pipe, 0, len(p.pipes))
	for _, producers := range p.pipes {
		pipes, err := produce(ec.Context(), pipeline.StagePipe, producers)
		if err != nil {
			return reflect.Value{}, err
		}
		groups = append(groups, pipes)
	}
	value, err := pipeline.RunPipes(raw, p.meta, groups...)
	if err != nil {
		return reflect.Value{}, err
	}
	return coerce(value, p.meta.Type)
}

// extract reads the raw value for one binding.
func extract(ec *pipeline.ExecutionContext, p param) (any, error) {
	req := ec.Request()
	key := p.meta.Key

	switch p.meta.Kind {
	case pipeline.ParamPath:
		if key == "" {
			return req.Params(), nil
		}
		return lookup(req.Params(), key), nil

	case pipeline.ParamQuery:
		if key == "" {
			return req.QueryAll(), nil
		}
		return lookup(req.QueryAll(), key), nil

	case pipeline.ParamHeaders:
		if key == "" {
			return req.Headers(), nil
		}
		if v := req.Header(key); v != "" {
			return v, nil
		}
		return nil, nil

	case pipeline.ParamBody:
		body, err := req.Body()
		if err != nil {
			return nil, exceptions.BadRequest("Malformed request body").WithCause(err)
		}
		if key == "" {
			return body, nil
		}
		if m, ok := body.(map[string]any); ok {
			return m[key], nil
		}
		return nil, nil

	case pipeline.ParamCustom:
		return pipeline.ProtectValue(pipeline.StageParam, func() (any, error) { return p.factory(p.meta.Data, ec) })

	case pipeline.ParamResponse:
		return ec.Writer(), nil
	}

	// Request, Context and unbound arguments are chosen by type.
	switch p.meta.Type {
	case contextType:
		return ec.Context(), nil
	case execContextType:
		return ec, nil
	case writerType:
		return ec.Writer(), nil
	case requestType:
		return req, nil
	}
	if p.meta.Kind == pipeline.ParamContext {
		return ec.Context(), nil
	}
	return ec.Raw(), nil
}

func lookup(m map[string]string, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	return nil
}

// coerce converts a pipeline value to the handler's argument type: nil
// becomes the zero value, assignable and numeric-convertible values pass,
// numeric strings and booleans are parsed, and anything else goes through
// a JSON round trip.
func coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumber(rv.Kind()) && isNumber(t.Kind()) {
		out := rv.Convert(t)
		if !out.Convert(rv.Type()).Equal(rv) {
			return reflect.Value{}, exceptions.BadRequest("Validation failed (" + describe(t) + " value out of range)")
		}
		return out, nil
	}

	if s, ok := v.(string); ok {
		if out, ok, err := parseScalar(s, t); ok {
			return out, err
		}
	}

	ptr := reflect.New(t)
	if err := gohttp.Convert(v, ptr.Interface()); err != nil {
		return reflect.Value{}, exceptions.BadRequest("Validation failed (unexpected " + describe(t) + ")").WithCause(err)
	}
	return ptr.Elem(), nil
}

func parseScalar(s string, t reflect.Type) (reflect.Value, bool, error) {
	out := reflect.New(t).Elem()
	var err error
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = strconv.ParseInt(s, 10, t.Bits()); err == nil {
			out.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if n, err = strconv.ParseUint(s, 10, t.Bits()); err == nil {
			out.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = strconv.ParseFloat(s, t.Bits()); err == nil {
			out.SetFloat(f)
		}
	case reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(s); err == nil {
			out.SetBool(b)
		}
	case reflect.String:
		out.SetString(s)
	default:
		return reflect.Value{}, false, nil
	}
	if err != nil {
		return reflect.Value{}, true, exceptions.BadRequest("Validation failed (" + describe(t) + " string is expected)").WithCause(err)
	}
	return out, true, nil
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func describe(t reflect.Type) string {
	switch {
	case t.Kind() == reflect.Bool:
		return "boolean"
	case isNumber(t.Kind()):
		return "numeric"
	}
	return t.String()
}

// ── Invocation & shaping ─────────────────────────────────────────────────────

// invoke calls the handler. Supported results are none, (T), (error) and
// (T, error).
func (rt *route) invoke(args []reflect.Value) (result any, err error) {
	err = pipeline.Protect(pipeline.StageHandler, func() error {
		out := rt.fn.Call(args)
		if rt.lastIsErr {
			if e := out[len(out)-1]; !e.IsNil() {
				return e.Interface().(error)
			}
			out = out[:len(out)-1]
		}
		if len(out) > 0 {
			result = out[0].Interface()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// shape turns a handler result into the response artifact.
func (rt *route) shape(result any) *gohttp.Response {
	if res, ok := result.(*gohttp.Response); ok {
		if res == nil {
			return gohttp.Empty(rt.defaultStatus())
		}
		return res
	}

	status := rt.defaultStatus()
	var res *gohttp.Response
	switch v := result.(type) {
	case nil:
		res = gohttp.Empty(status)
	case string:
		res = gohttp.Text(status, v)
	default:
		res = gohttp.JSON(status, v)
	}
	for k, v := range rt.headers {
		res.Header.Set(k, v)
	}
	return res
}

func (rt *route) defaultStatus() int {
	switch {
	case rt.status != 0:
		return rt.status
	case rt.entry.Method == http.MethodPost:
		return http.StatusCreated
	}
	return http.StatusOK
}
