package filesystem

import "errors"

var (
	// ErrHashMismatch is an error that occurs when there is a source/destination hash
	// mismatch, this usually means that there are underlying transfer/hardware issues.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrCopyIntoSelf is an error that occurs when a directory would be copied
	// into one of its own subdirectories.
	ErrCopyIntoSelf = errors.New("cannot copy a directory into itself")
)
