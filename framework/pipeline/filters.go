package pipeline

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	gohttp "github.com/km-arc/go-dispatch/framework/http"
)

// ErrFilterExhausted marks an error that no registered filter handled. The
// default filter receives it marked this way.
var ErrFilterExhausted = errors.New("no exception filter produced a response")

// Filter turns an error into a response. Returning a nil response passes
// the error on to the next filter.
type Filter interface {
	Catch(ec *ExecutionContext, err error) (*gohttp.Response, error)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(ec *ExecutionContext, err error) (*gohttp.Response, error)

func (f FilterFunc) Catch(ec *ExecutionContext, err error) (*gohttp.Response, error) {
	return f(ec, err)
}

// Catch builds a filter that only handles errors whose chain contains an E.
//
//	pipeline.Catch(func(ec *pipeline.ExecutionContext, e *NotFoundError) (*gohttp.Response, error) {
//	    return gohttp.Error(404, e.Error()), nil
//	})
func Catch[E error](fn func(ec *ExecutionContext, err E) (*gohttp.Response, error)) Filter {
	return FilterFunc(func(ec *ExecutionContext, err error) (*gohttp.Response, error) {
		var target E
		if !errors.As(err, &target) {
			return nil, nil
		}
		return fn(ec, target)
	})
}

// DefaultFilter renders the errors the framework knows about: validation
// failures become 422 with an "errors" bag, anything carrying a status is
// rendered with it, and everything else is a 500.
var DefaultFilter Filter = FilterFunc(func(_ *ExecutionContext, err error) (*gohttp.Response, error) {
	if ve, ok := exceptions.AsValidation(err); ok {
		return gohttp.ValidationError(ve.PublicMessage(), ve.Fields), nil
	}

	var he *exceptions.HTTPException
	if errors.As(err, &he) {
		msg := he.Message
		if msg == "" {
			msg = http.StatusText(he.Status)
		}
		body := gohttp.ErrorBody(he.Status, msg)
		for k, v := range he.Details {
			if _, reserved := body[k]; !reserved {
				body[k] = v
			}
		}
		return gohttp.JSON(he.Status, body), nil
	}

	if sc, ok := exceptions.AsStatusCoder(err); ok {
		return gohttp.Error(sc.StatusCode(), sc.PublicMessage()), nil
	}
	return gohttp.ServerError(), nil
})

// fallbackBody is written when even the default filter fails.
const fallbackBody = `{"statusCode":500,"message":"Internal server error"}`

// Fallback returns the terminal 500 response. It never fails.
func Fallback() *gohttp.Response {
	res := gohttp.Empty(http.StatusInternalServerError)
	res.Header.Set("Content-Type", "application/json")
	res.Raw = []byte(fallbackBody)
	return res
}

// ExceptionHandler selects the response for a failed request.
type ExceptionHandler struct {
	// Default runs after every other filter passed. DefaultFilter when nil.
	Default Filter
	Logger  zerolog.Logger
}

// Handle tries each group of filters in order, typically method,
// controller then global filters. The first non-nil response wins. Filters
// that fail or panic are logged and skipped. When every filter passes, the
// default filter handles the error, and if that fails too the terminal
// Fallback is used. Handle always returns a response.
func (h *ExceptionHandler) Handle(ec *ExecutionContext, err error, groups ...[]Filter) *gohttp.Response {
	for _, group := range groups {
		for _, f := range group {
			if res := h.try(ec, f, err); res != nil {
				return res
			}
		}
	}

	def := h.Default
	if def == nil {
		def = DefaultFilter
	}
	if res := h.try(ec, def, errors.Mark(err, ErrFilterExhausted)); res != nil {
		return res
	}
	return Fallback()
}

func (h *ExceptionHandler) try(ec *ExecutionContext, f Filter, err error) *gohttp.Response {
	res, ferr := ProtectValue(StageFilter, func() (*gohttp.Response, error) { return f.Catch(ec, err) })
	if ferr != nil {
		h.Logger.Warn().Err(ferr).Str("request_id", ec.ID()).Msgf("exception filter %T failed", f)
		return nil
	}
	return res
}
