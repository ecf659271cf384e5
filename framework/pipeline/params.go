package pipeline

import "reflect"

// ParamKind identifies where a handler argument comes from.
type ParamKind int

const (
	// ParamNone marks an argument without a binding. It receives the raw
	// request, or the writer/context when its type asks for one.
	ParamNone ParamKind = iota
	ParamPath
	ParamQuery
	ParamBody
	ParamHeaders
	ParamCustom
	ParamRequest
	ParamResponse
	ParamContext
)

var paramKindNames = [...]string{"none", "path", "query", "body", "headers", "custom", "request", "response", "context"}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return "unknown"
}

// Transformable reports whether pipes run for this kind. Raw request,
// response and context arguments are passed through untouched.
func (k ParamKind) Transformable() bool {
	return k >= ParamPath && k <= ParamCustom
}

// ArgumentMetadata describes the argument a pipe is transforming.
type ArgumentMetadata struct {
	Kind  ParamKind
	Type  reflect.Type
	Key   string
	Index int
	Data  any
}
