package policy

import "errors"

var (
	// ErrUnknownOperation is an error that occurs when an operation is not
	// part of the operation table. This is a programming error, not a
	// runtime condition of the filesystem.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnknownRight is an error that occurs when an access right notation
	// cannot be parsed.
	ErrUnknownRight = errors.New("unknown access right")
)
