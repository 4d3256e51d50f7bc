// Package access authorizes single path arguments by combining path
// confinement with an externally supplied [Decision].
package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/desertwitch/rpcfs/internal/pathing"
	"github.com/desertwitch/rpcfs/internal/policy"
)

// Request describes one path argument that is up for authorization. Path is
// the rooted requested path (see [pathing.Rooted]) and never the host path.
type Request struct {
	Operation policy.Operation
	Right     policy.Right
	Path      string
}

// Decision decides if a [Request] is allowed. Only (true, nil) grants
// access, a returned error counts as a denial. Implementations may block
// and should honor the context.
type Decision func(ctx context.Context, req Request) (bool, error)

// AllowAll is a [Decision] granting every request.
func AllowAll(context.Context, Request) (bool, error) {
	return true, nil
}

// DenyAll is a [Decision] refusing every request.
func DenyAll(context.Context, Request) (bool, error) {
	return false, nil
}

type pathResolver interface {
	Resolve(requested string) (string, error)
}

// Gate is the principal implementation of the per-path authorization step.
// It holds no mutable state and is safe for concurrent use.
type Gate struct {
	resolver pathResolver
	decision Decision
	logger   *slog.Logger
}

// NewGate returns a pointer to a new [Gate].
func NewGate(resolver pathResolver, decision Decision, logger *slog.Logger) (*Gate, error) {
	if resolver == nil {
		return nil, fmt.Errorf("(access) %w", ErrNilResolver)
	}
	if decision == nil {
		return nil, fmt.Errorf("(access) %w", ErrNilDecision)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Gate{
		resolver: resolver,
		decision: decision,
		logger:   logger,
	}, nil
}

// Authorize resolves a requested path and asks the [Decision] about it. On
// success the resolved host path is returned. Escapes, refusals and
// decision failures all end up as a [*PermissionError]. The only exception
// is a cancelled or expired context, whose error is returned as is.
func (g *Gate) Authorize(ctx context.Context, op policy.Operation, right policy.Right, requested string) (string, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("(access) %w", ctxErr)
	}

	rooted := pathing.Rooted(requested)

	resolved, err := g.resolver.Resolve(requested)
	if err != nil {
		g.logger.Debug("Denied access: path resolution failed",
			"op", op.String(),
			"path", rooted,
			"err", err,
		)

		return "", &PermissionError{Op: op, Path: rooted}
	}

	allowed, err := g.decision(ctx, Request{
		Operation: op,
		Right:     right,
		Path:      rooted,
	})

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("(access) %w", ctxErr)
	}

	if err != nil {
		g.logger.Debug("Denied access: decision failed",
			"op", op.String(),
			"path", rooted,
			"err", err,
		)

		return "", &PermissionError{Op: op, Path: rooted}
	}

	if !allowed {
		g.logger.Debug("Denied access: decision refused",
			"op", op.String(),
			"right", right.String(),
			"path", rooted,
		)

		return "", &PermissionError{Op: op, Path: rooted}
	}

	return resolved, nil
}
