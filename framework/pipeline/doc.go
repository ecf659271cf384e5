// Package pipeline holds the contracts of the request pipeline and the
// runners for each stage.
//
// A request flows through
//
//	guards → pipes (per argument) → interceptors(handler) → response
//
// and any failure along the way goes to the ExceptionHandler.
//
// # Guards
//
//	type AuthGuard struct{}
//
//	func (AuthGuard) CanActivate(ec *pipeline.ExecutionContext) (bool, error) {
//	    return ec.Request().BearerToken() != "", nil
//	}
//
// Returning false yields 403 "Forbidden resource". Returning an error that
// carries a status (exceptions.Unauthorized, for instance) surfaces that
// status instead.
//
// # Pipes
//
// Pipes receive the current argument value and its ArgumentMetadata and
// return the replacement. They run global → controller → method → parameter.
//
// # Interceptors
//
//	pipeline.InterceptorFunc(func(ec *pipeline.ExecutionContext, next pipeline.CallHandler) (any, error) {
//	    start := time.Now()
//	    v, err := next.Handle()
//	    ec.Logger().Info().Dur("took", time.Since(start)).Send()
//	    return v, err
//	})
//
// # Exception filters
//
// Filters are tried method → controller → global. The first to return a
// response wins; DefaultFilter handles the rest and Fallback covers a
// failing default filter.
package pipeline
