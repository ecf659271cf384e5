package pipeline

import (
	"github.com/cockroachdb/errors"

	"github.com/km-arc/go-dispatch/framework/exceptions"
)

// Guard decides whether a request may reach its handler.
type Guard interface {
	CanActivate(ec *ExecutionContext) (bool, error)
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(ec *ExecutionContext) (bool, error)

func (f GuardFunc) CanActivate(ec *ExecutionContext) (bool, error) { return f(ec) }

// StreamGuard adapts a guard that answers on a channel. The first value
// received decides; a channel closed without a value, or a request context
// that ends first, denies.
func StreamGuard(fn func(ec *ExecutionContext) <-chan bool) Guard {
	return GuardFunc(func(ec *ExecutionContext) (bool, error) {
		select {
		case ok, open := <-fn(ec):
			return open && ok, nil
		case <-ec.Context().Done():
			return false, nil
		}
	})
}

// RunGuards evaluates guards in order. The first guard that returns false,
// fails or panics stops the chain. Errors that carry an HTTP status are
// returned as-is; anything else becomes 403 Forbidden.
func RunGuards(ec *ExecutionContext, guards []Guard) error {
	for _, g := range guards {
		ok, err := ProtectValue(StageGuard, func() (bool, error) { return g.CanActivate(ec) })
		if err != nil {
			if _, known := exceptions.AsStatusCoder(err); known {
				return err
			}
			return exceptions.Forbidden("").WithCause(errors.Wrapf(err, "guard %T", g))
		}
		if !ok {
			return exceptions.Forbidden("")
		}
	}
	return nil
}
