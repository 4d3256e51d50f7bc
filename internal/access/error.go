package access

import (
	"errors"
	"fmt"

	"github.com/desertwitch/rpcfs/internal/policy"
	"golang.org/x/sys/unix"
)

var (
	// ErrNilDecision is an error that occurs when a [Gate] is constructed
	// without a [Decision]. There is no implicit fallback decision.
	ErrNilDecision = errors.New("decision is nil")

	// ErrNilResolver is an error that occurs when a [Gate] is constructed
	// without a path resolver.
	ErrNilResolver = errors.New("resolver is nil")
)

// PermissionError is returned for every denied path, whether the decision
// refused it, the decision failed or the path would escape the sandbox. It
// only ever carries the rooted requested path, never the host path.
type PermissionError struct {
	Op   policy.Operation
	Path string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("EACCES: permission denied, %s '%s'", e.Op, e.Path)
}

// Code returns the symbolic error code.
func (e *PermissionError) Code() string {
	return "EACCES"
}

// Errno returns the negative errno value, as reported to remote callers.
func (e *PermissionError) Errno() int {
	return -int(unix.EACCES)
}

// Unwrap returns [unix.EACCES], so that errors.Is(err, fs.ErrPermission)
// holds for any [PermissionError].
func (e *PermissionError) Unwrap() error {
	return unix.EACCES
}
