// Package policy holds the static table of path arguments and access rights
// that every filesystem operation requires.
package policy

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Right is the access right that is requested for a single path argument.
type Right uint32

const (
	// RightNone requests only an existence check (F_OK).
	RightNone Right = 0

	// RightRead requests read access (R_OK).
	RightRead Right = 1

	// RightWrite requests write access (W_OK).
	RightWrite Right = 2
)

// RightReadWrite requests both read and write access.
const RightReadWrite = RightRead | RightWrite

// Mode returns the right as an access(2) mode mask.
func (r Right) Mode() uint32 {
	mode := uint32(unix.F_OK)

	if r&RightRead != 0 {
		mode |= unix.R_OK
	}
	if r&RightWrite != 0 {
		mode |= unix.W_OK
	}

	return mode
}

func (r Right) String() string {
	switch r {
	case RightNone:
		return "F"
	case RightRead:
		return "R"
	case RightWrite:
		return "W"
	case RightReadWrite:
		return "RW"
	default:
		return fmt.Sprintf("Right(%d)", uint32(r))
	}
}

// ParseRight maps the short notation ("F", "R", "W", "RW") back to a [Right].
func ParseRight(s string) (Right, error) {
	switch s {
	case "F", "":
		return RightNone, nil
	case "R":
		return RightRead, nil
	case "W":
		return RightWrite, nil
	case "RW", "WR":
		return RightReadWrite, nil
	default:
		return RightNone, fmt.Errorf("(policy) %w: %q", ErrUnknownRight, s)
	}
}

// RightFromMode maps an access(2) mode mask to a [Right].
func RightFromMode(mode uint32) Right {
	r := RightNone

	if mode&unix.R_OK != 0 {
		r |= RightRead
	}
	if mode&unix.W_OK != 0 {
		r |= RightWrite
	}

	return r
}

// Operation is one of the closed set of filesystem operations. The string
// form is the stable name used by transports and decision callbacks.
type Operation int

const (
	OpAccess Operation = iota
	OpAppendFile
	OpCopyFile
	OpCp
	OpMkdir
	OpMkdirp
	OpReadFile
	OpReaddir
	OpReaddirStats
	OpRename
	OpRm
	OpRmdir
	OpRmrf
	OpStat
	OpSymlink
	OpTruncate
	OpUnlink
	OpUtimes
	OpWriteFile

	numOperations
)

type entry struct {
	name   string
	rights []Right
}

// table maps each [Operation] to its ordered path rights. The order of the
// rights is the order of the operation's path arguments.
//
//nolint:gochecknoglobals
var table = [numOperations]entry{
	OpAccess:       {"access", []Right{RightNone}},
	OpAppendFile:   {"appendFile", []Right{RightWrite}},
	OpCopyFile:     {"copyFile", []Right{RightRead, RightWrite}},
	OpCp:           {"cp", []Right{RightRead, RightWrite}},
	OpMkdir:        {"mkdir", []Right{RightWrite}},
	OpMkdirp:       {"mkdirp", []Right{RightWrite}},
	OpReadFile:     {"readFile", []Right{RightRead}},
	OpReaddir:      {"readdir", []Right{RightRead}},
	OpReaddirStats: {"readdirStats", []Right{RightNone}},
	OpRename:       {"rename", []Right{RightWrite, RightWrite}},
	OpRm:           {"rm", []Right{RightWrite}},
	OpRmdir:        {"rmdir", []Right{RightWrite}},
	OpRmrf:         {"rmrf", []Right{RightWrite}},
	OpStat:         {"stat", []Right{RightNone}},
	OpSymlink:      {"symlink", []Right{RightRead, RightWrite}},
	OpTruncate:     {"truncate", []Right{RightWrite}},
	OpUnlink:       {"unlink", []Right{RightWrite}},
	OpUtimes:       {"utimes", []Right{RightWrite}},
	OpWriteFile:    {"writeFile", []Right{RightWrite}},
}

func (op Operation) valid() bool {
	return op >= 0 && op < numOperations
}

func (op Operation) String() string {
	if !op.valid() {
		return fmt.Sprintf("Operation(%d)", int(op))
	}

	return table[op].name
}

// RightsFor returns a copy of the ordered rights for the path arguments of
// an operation. The length of the result is the operation's path arity.
func RightsFor(op Operation) ([]Right, error) {
	if !op.valid() {
		return nil, fmt.Errorf("(policy) %w: %s", ErrUnknownOperation, op)
	}

	rights := make([]Right, len(table[op].rights))
	copy(rights, table[op].rights)

	return rights, nil
}

// Arity returns the number of path arguments of an operation.
func Arity(op Operation) (int, error) {
	if !op.valid() {
		return 0, fmt.Errorf("(policy) %w: %s", ErrUnknownOperation, op)
	}

	return len(table[op].rights), nil
}

// ParseOperation maps an operation name such as "readFile" to its
// [Operation].
func ParseOperation(name string) (Operation, error) {
	for op := range numOperations {
		if table[op].name == name {
			return op, nil
		}
	}

	return -1, fmt.Errorf("(policy) %w: %q", ErrUnknownOperation, name)
}

// Operations returns every known operation in table order.
func Operations() []Operation {
	ops := make([]Operation, 0, numOperations)
	for op := range numOperations {
		ops = append(ops, op)
	}

	return ops
}
