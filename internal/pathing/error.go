package pathing

import "errors"

var (
	// ErrInvalidRoot is an error that occurs when a [Resolver] is constructed
	// without a usable root directory.
	ErrInvalidRoot = errors.New("invalid sandbox root")

	// ErrSandboxEscape is an error that occurs when a requested path would
	// resolve outside of the sandbox root.
	ErrSandboxEscape = errors.New("path escapes sandbox root")
)
