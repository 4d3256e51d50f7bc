package rpcfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertwitch/rpcfs/internal/policy"
)

// ErrInvalidArguments is returned by [Sandbox.Invoke] when the arguments
// do not fit the operation.
var ErrInvalidArguments = errors.New("invalid arguments")

const (
	defaultFilePerm os.FileMode = 0o644
	defaultDirPerm  os.FileMode = 0o755
)

// InvokeOptions carries the flags of string based invocations.
type InvokeOptions struct {
	Recursive bool
	Force     bool

	// Perm is used for created files and directories. Zero selects 0644 for
	// files and 0755 for directories.
	Perm os.FileMode
}

func (o InvokeOptions) filePerm() os.FileMode {
	if o.Perm == 0 {
		return defaultFilePerm
	}

	return o.Perm
}

func (o InvokeOptions) dirPerm() os.FileMode {
	if o.Perm == 0 {
		return defaultDirPerm
	}

	return o.Perm
}

// Invoke runs an operation given by name with string arguments, as they
// arrive from a command line or a text protocol. Path arguments come first,
// in the order of the operation table, followed by the operation's other
// arguments. The result is nil for operations without one.
//
//nolint:cyclop,funlen
func (s *Sandbox) Invoke(ctx context.Context, name string, args []string, opts InvokeOptions) (any, error) {
	op, err := policy.ParseOperation(name)
	if err != nil {
		return nil, fmt.Errorf("(rpcfs-invoke) %w", err)
	}

	arity, _ := policy.Arity(op)
	if len(args) < arity {
		return nil, fmt.Errorf("(rpcfs-invoke) %w: %s needs %d path(s)", ErrInvalidArguments, op, arity)
	}
	extra := args[arity:]

	if lo, hi := extraArity(op); len(extra) < lo || len(extra) > hi {
		return nil, fmt.Errorf("(rpcfs-invoke) %w: %s takes %d path(s) and %d to %d other argument(s), got %d in total",
			ErrInvalidArguments, op, arity, lo, hi, len(args))
	}

	switch op {
	case policy.OpAccess:
		mode := uint32(0)
		if len(extra) > 0 {
			right, err := policy.ParseRight(extra[0])
			if err != nil {
				return nil, fmt.Errorf("(rpcfs-invoke) %w: %w", ErrInvalidArguments, err)
			}
			mode = right.Mode()
		}

		return nil, s.Access(ctx, args[0], mode)

	case policy.OpAppendFile, policy.OpWriteFile:
		if op == policy.OpAppendFile {
			return nil, s.AppendFile(ctx, args[0], []byte(extra[0]), opts.filePerm())
		}

		return nil, s.WriteFile(ctx, args[0], []byte(extra[0]), opts.filePerm())

	case policy.OpCopyFile:
		return nil, s.CopyFile(ctx, args[0], args[1], CopyOptions{Exclusive: !opts.Force})

	case policy.OpCp:
		return nil, s.Cp(ctx, args[0], args[1], CpOptions{Recursive: opts.Recursive, Force: opts.Force, ErrorOnExist: !opts.Force})

	case policy.OpMkdir:
		return nil, s.Mkdir(ctx, args[0], opts.dirPerm())

	case policy.OpMkdirp:
		return nil, s.Mkdirp(ctx, args[0], opts.dirPerm())

	case policy.OpReadFile:
		return s.ReadFile(ctx, args[0])

	case policy.OpReaddir:
		return s.Readdir(ctx, args[0])

	case policy.OpReaddirStats:
		return s.ReaddirStats(ctx, args[0])

	case policy.OpRename:
		return nil, s.Rename(ctx, args[0], args[1])

	case policy.OpRm:
		return nil, s.Rm(ctx, args[0], RmOptions{Recursive: opts.Recursive, Force: opts.Force})

	case policy.OpRmdir:
		return nil, s.Rmdir(ctx, args[0])

	case policy.OpRmrf:
		return nil, s.Rmrf(ctx, args[0])

	case policy.OpStat:
		return s.Stat(ctx, args[0])

	case policy.OpSymlink:
		return nil, s.Symlink(ctx, args[0], args[1])

	case policy.OpTruncate:
		size := int64(0)
		if len(extra) > 0 {
			size, err = strconv.ParseInt(extra[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("(rpcfs-invoke) %w: size: %w", ErrInvalidArguments, err)
			}
		}

		return nil, s.Truncate(ctx, args[0], size)

	case policy.OpUnlink:
		return nil, s.Unlink(ctx, args[0])

	case policy.OpUtimes:
		atime, err := parseTime(extra[0])
		if err != nil {
			return nil, fmt.Errorf("(rpcfs-invoke) %w: atime: %w", ErrInvalidArguments, err)
		}
		mtime, err := parseTime(extra[1])
		if err != nil {
			return nil, fmt.Errorf("(rpcfs-invoke) %w: mtime: %w", ErrInvalidArguments, err)
		}

		return nil, s.Utimes(ctx, args[0], atime, mtime)

	default:
		return nil, fmt.Errorf("(rpcfs-invoke) %w: %s", policy.ErrUnknownOperation, op)
	}
}

// extraArity returns how many arguments an operation accepts after its paths.
func extraArity(op policy.Operation) (int, int) {
	switch op { //nolint:exhaustive
	case policy.OpAccess, policy.OpTruncate:
		return 0, 1
	case policy.OpAppendFile, policy.OpWriteFile:
		return 1, 1
	case policy.OpUtimes:
		return 2, 2 //nolint:mnd
	default:
		return 0, 0
	}
}

// parseTime accepts RFC 3339 timestamps and Unix seconds.
func parseTime(s string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time: %w", err)
	}

	return t, nil
}
