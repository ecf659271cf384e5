package interceptors

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	"github.com/km-arc/go-dispatch/framework/logging"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

// Logging logs one line per handler execution with its duration. Handler
// errors are logged at warn level, or error level for 5xx.
func Logging(l zerolog.Logger) pipeline.Interceptor {
	l = logging.Component(l, "handler")
	return pipeline.InterceptorFunc(func(ec *pipeline.ExecutionContext, next pipeline.CallHandler) (any, error) {
		start := time.Now()
		v, err := next.Handle()

		ev := l.Debug()
		if err != nil {
			ev = l.Warn()
			if exceptions.Status(err) >= 500 {
				ev = l.Error()
			}
			ev = ev.Err(err)
		}
		ev.Str(logging.FieldRequestID, ec.ID()).
			Str(logging.FieldRoute, ec.Route()).
			Str(logging.FieldHandler, handlerName(ec)).
			Dur(logging.FieldDuration, time.Since(start)).
			Msg("handler executed")
		return v, err
	})
}

func handlerName(ec *pipeline.ExecutionContext) string {
	if t := ec.Controller(); t != nil {
		return t.String() + "." + ec.Handler()
	}
	return ec.Handler()
}
