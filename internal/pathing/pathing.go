// Package pathing confines requested paths to a sandbox root directory.
//
// Resolution is lexical by default: the requested path is rooted at "/",
// cleaned and joined onto the root before the result is checked to lie
// inside of the root. No filesystem access happens in that mode. A
// [Resolver] constructed with [WithSymlinkResolution] additionally follows
// symbolic links of the existing part of a path and rejects any path whose
// real location leaves the (real) root.
package pathing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type osProvider interface {
	Lstat(name string) (os.FileInfo, error)
	EvalSymlinks(path string) (string, error)
}

// Resolver maps requested paths to host paths below a fixed root. It is
// immutable after construction and safe for concurrent use.
type Resolver struct {
	root      string
	realRoot  string
	osHandler osProvider
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithSymlinkResolution enables symbolic link hardening using the given
// provider for filesystem lookups.
func WithSymlinkResolution(osHandler osProvider) Option {
	return func(r *Resolver) {
		r.osHandler = osHandler
	}
}

// NewResolver returns a pointer to a new [Resolver] for the given root. A
// relative root is made absolute against the working directory.
func NewResolver(root string, opts ...Option) (*Resolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("(pathing) %w: root is empty", ErrInvalidRoot)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("(pathing) %w: %w", ErrInvalidRoot, err)
	}

	r := &Resolver{
		root:     absRoot,
		realRoot: absRoot,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.osHandler != nil {
		if realRoot, err := r.osHandler.EvalSymlinks(absRoot); err == nil {
			r.realRoot = realRoot
		}
	}

	return r, nil
}

// Root returns the absolute, cleaned sandbox root.
func (r *Resolver) Root() string {
	return r.root
}

// Rooted returns the requested path interpreted relative to "/" and
// lexically cleaned. Any ".." that would climb above "/" is absorbed, so
// "../../etc" becomes "/etc".
func Rooted(requested string) string {
	return filepath.Join("/", requested)
}

// Resolve maps a requested path onto the host filesystem below the root.
// The join always happens before the containment check.
func (r *Resolver) Resolve(requested string) (string, error) {
	resolved := filepath.Join(r.root, Rooted(requested))

	if !Within(r.root, resolved) {
		return "", fmt.Errorf("(pathing) %w: %q", ErrSandboxEscape, requested)
	}

	if r.osHandler == nil {
		return resolved, nil
	}

	if err := r.checkLinks(resolved); err != nil {
		return "", fmt.Errorf("(pathing) %w: %q: %w", ErrSandboxEscape, requested, err)
	}

	return resolved, nil
}

// checkLinks evaluates symbolic links for the deepest existing ancestor of
// a resolved path, re-appends the not yet existing remainder and checks the
// outcome against the real root.
func (r *Resolver) checkLinks(resolved string) error {
	existing := resolved
	remainder := []string{}

	for {
		if _, err := r.osHandler.Lstat(existing); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to lstat: %w", err)
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}

		remainder = append([]string{filepath.Base(existing)}, remainder...)
		existing = parent
	}

	realPath, err := r.osHandler.EvalSymlinks(existing)
	if err != nil {
		return fmt.Errorf("failed to evaluate links: %w", err)
	}

	full := filepath.Join(append([]string{realPath}, remainder...)...)
	if !Within(r.realRoot, full) {
		return fmt.Errorf("real path %q is outside of %q", full, r.realRoot)
	}

	return nil
}

// Within reports if path equals root or lies below it. The check respects
// path component boundaries, so "/srv/data2" is not within "/srv/data".
func Within(root string, path string) bool {
	if root == "/" {
		return strings.HasPrefix(path, "/")
	}

	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
