// Package util contains small generic helpers.
package util

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ConcurrentFilterMap applies mapFunc to every item, using at most one
// worker per CPU. Results for which mapFunc reports keep are collected, in
// no particular order. The first error cancels the remaining work and is
// returned, as is the context's error should it end first.
func ConcurrentFilterMap[T any, R any](ctx context.Context, items []T, mapFunc func(context.Context, T) (R, bool, error)) ([]R, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	ch := make(chan R, len(items))

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck
			}

			res, keep, err := mapFunc(gctx, item)
			if err != nil {
				return err
			}

			if keep {
				ch <- res
			}

			return nil
		})
	}

	err := g.Wait()
	close(ch)

	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	filtered := make([]R, 0, len(ch))
	for res := range ch {
		filtered = append(filtered, res)
	}

	return filtered, nil
}
