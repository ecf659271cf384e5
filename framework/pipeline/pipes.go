package pipeline

import "github.com/cockroachdb/errors"

// Pipe transforms or validates one handler argument.
type Pipe interface {
	Transform(value any, meta ArgumentMetadata) (any, error)
}

// PipeFunc adapts a function to Pipe.
type PipeFunc func(value any, meta ArgumentMetadata) (any, error)

func (f PipeFunc) Transform(value any, meta ArgumentMetadata) (any, error) { return f(value, meta) }

// RunPipes threads value through each group of pipes in order, typically
// global, controller, method and parameter pipes. The first failure aborts.
func RunPipes(value any, meta ArgumentMetadata, groups ...[]Pipe) (any, error) {
	for _, group := range groups {
		for _, p := range group {
			next, err := ProtectValue(StagePipe, func() (any, error) { return p.Transform(value, meta) })
			if err != nil {
				return nil, errors.WithMessagef(err, "%s parameter %d", meta.Kind, meta.Index)
			}
			value = next
		}
	}
	return value, nil
}
