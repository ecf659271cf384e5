package interceptors

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

// TracerName identifies the instrumentation library.
const TracerName = "github.com/km-arc/go-dispatch/framework/interceptors"

type spanKey struct{}

// Tracing starts a server span around handler execution. Errors are
// recorded on the span; 5xx errors also mark it failed.
func Tracing(tp trace.TracerProvider) pipeline.Interceptor {
	tracer := tp.Tracer(TracerName)
	return pipeline.InterceptorFunc(func(ec *pipeline.ExecutionContext, next pipeline.CallHandler) (any, error) {
		req := ec.Request()
		ctx, span := tracer.Start(ec.Context(), req.Method()+" "+ec.Route(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method()),
				attribute.String("http.route", ec.Route()),
				attribute.String("dispatch.handler", handlerName(ec)),
				attribute.String("dispatch.request_id", ec.ID()),
			))
		defer span.End()
		ec.Set(spanKey{}, ctx)

		v, err := next.Handle()
		if err != nil {
			status := exceptions.Status(err)
			span.RecordError(err)
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= 500 {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		return v, err
	})
}

// SpanContext returns the context carrying the span started by Tracing,
// or the request context when no span was started.
func SpanContext(ec *pipeline.ExecutionContext) context.Context {
	if v, ok := ec.Get(spanKey{}); ok {
		return v.(context.Context)
	}
	return ec.Context()
}
