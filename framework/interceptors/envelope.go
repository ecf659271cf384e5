package interceptors

import (
	gohttp "github.com/km-arc/go-dispatch/framework/http"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

// Envelope wraps successful results as {"data": result}. Results that are
// already responses, and nil results, pass through.
func Envelope() pipeline.Interceptor {
	return pipeline.Map(func(v any) (any, error) {
		switch v.(type) {
		case nil, *gohttp.Response:
			return v, nil
		}
		return map[string]any{"data": v}, nil
	})
}
