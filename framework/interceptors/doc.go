// Package interceptors contains the built-in interceptors. Each one wraps
// handler execution without changing its outcome unless documented.
//
//	application.UseGlobalInterceptors(
//	    interceptors.Logging(log),
//	    interceptors.Tracing(otel.GetTracerProvider()),
//	)
//
// Metrics is usually resolved from the container, where the metrics
// provider registers it against the application's prometheus registry:
//
//	application.UseGlobalInterceptors(reflect.TypeFor[*interceptors.Metrics]())
package interceptors
