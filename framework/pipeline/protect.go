package pipeline

import (
	"runtime/debug"

	"github.com/km-arc/go-dispatch/framework/exceptions"
)

// Stage names used in HandlerFault.
const (
	StageGuard       = "guard"
	StagePipe        = "pipe"
	StageInterceptor = "interceptor"
	StageHandler     = "handler"
	StageFilter      = "filter"
	StageParam       = "param"
)

// Protect runs fn and turns a panic into a *exceptions.HandlerFault.
func Protect(stage string, fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &exceptions.HandlerFault{Stage: stage, Value: v, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// ProtectValue is Protect for functions returning a value.
func ProtectValue[T any](stage string, fn func() (T, error)) (out T, err error) {
	err = Protect(stage, func() error {
		var innerErr error
		out, innerErr = fn()
		return innerErr
	})
	return out, err
}
