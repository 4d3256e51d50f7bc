// Package intercept authorizes all path arguments of an operation before the
// operation's implementation is allowed to run.
package intercept

import (
	"context"
	"fmt"

	"github.com/desertwitch/rpcfs/internal/policy"
)

type pathAuthorizer interface {
	Authorize(ctx context.Context, op policy.Operation, right policy.Right, requested string) (string, error)
}

// Interceptor checks the path arguments of an operation one by one, in the
// order the operation declares them.
type Interceptor struct {
	gate pathAuthorizer
}

// New returns a pointer to a new [Interceptor].
func New(gate pathAuthorizer) *Interceptor {
	return &Interceptor{
		gate: gate,
	}
}

// Authorize authorizes every path of an operation in argument order and
// returns the resolved paths in the same positions. It stops at the first
// path that fails, later paths are then never looked at. The given slice is
// not modified.
func (ic *Interceptor) Authorize(ctx context.Context, op policy.Operation, paths ...string) ([]string, error) {
	rights, err := policy.RightsFor(op)
	if err != nil {
		return nil, fmt.Errorf("(intercept) %w", err)
	}

	if len(paths) != len(rights) {
		return nil, fmt.Errorf("(intercept) %w: %s takes %d path(s), got %d", ErrArityMismatch, op, len(rights), len(paths))
	}

	resolved := make([]string, len(paths))

	for i, right := range rights {
		p, err := ic.gate.Authorize(ctx, op, right, paths[i])
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		resolved[i] = p
	}

	return resolved, nil
}

// Func1 is the shape of an operation taking one path and one further
// argument.
type Func1[A any, R any] func(ctx context.Context, path string, arg A) (R, error)

// Func2 is the shape of an operation taking two paths and one further
// argument.
type Func2[A any, R any] func(ctx context.Context, first string, second string, arg A) (R, error)

// Gate1 wraps a single path operation. The returned function authorizes
// the path and only then calls fn with the resolved path. Errors of fn are
// passed through as they are. It panics if op does not take exactly one
// path, which is a wiring mistake.
func Gate1[A any, R any](ic *Interceptor, op policy.Operation, fn Func1[A, R]) Func1[A, R] {
	mustArity(op, 1)

	return func(ctx context.Context, path string, arg A) (R, error) {
		var zero R

		resolved, err := ic.Authorize(ctx, op, path)
		if err != nil {
			return zero, err
		}

		return fn(ctx, resolved[0], arg)
	}
}

// Gate2 wraps a two path operation, see [Gate1].
func Gate2[A any, R any](ic *Interceptor, op policy.Operation, fn Func2[A, R]) Func2[A, R] {
	mustArity(op, 2) //nolint:mnd

	return func(ctx context.Context, first string, second string, arg A) (R, error) {
		var zero R

		resolved, err := ic.Authorize(ctx, op, first, second)
		if err != nil {
			return zero, err
		}

		return fn(ctx, resolved[0], resolved[1], arg)
	}
}

func mustArity(op policy.Operation, want int) {
	arity, err := policy.Arity(op)
	if err != nil {
		panic(fmt.Sprintf("(intercept) %v", err))
	}

	if arity != want {
		panic(fmt.Sprintf("(intercept) %v: %s takes %d path(s), wrapper has %d", ErrArityMismatch, op, arity, want))
	}
}
