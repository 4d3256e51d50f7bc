package intercept

import "errors"

// ErrArityMismatch is an error that occurs when the number of path
// arguments does not match what the operation table declares.
var ErrArityMismatch = errors.New("path arity mismatch")
