package decision

import "errors"

var (
	// ErrUnsupportedFormat is an error that occurs when a rules file has an
	// extension that is neither YAML nor TOML.
	ErrUnsupportedFormat = errors.New("unsupported rules format")

	// ErrInvalidRule is an error that occurs when a rule does not validate.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrRemoteStatus is an error that occurs when a remote policy endpoint
	// answers with a non-2xx status.
	ErrRemoteStatus = errors.New("unexpected remote policy status")
)
